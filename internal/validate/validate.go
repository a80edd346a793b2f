// Package validate holds the input schemas' business rules: struct-tag
// validation for request bodies plus the domain checks that tags cannot express.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
)

var (
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	symbolPattern  = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)
	isinPattern    = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
)

var (
	once     sync.Once
	instance *validator.Validate
)

// FieldError is a single failed rule on a request field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors is the set of field errors produced for one request.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the errors keyed by field name.
func (e Errors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

// Validator returns the shared validator with the custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// Decimals are validated through their string form.
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		mustRegister(v, "pincode", func(fl validator.FieldLevel) bool {
			return IsPincode(fl.Field().String())
		})
		mustRegister(v, "evmaddress", func(fl validator.FieldLevel) bool {
			return IsAddress(fl.Field().String())
		})
		mustRegister(v, "symbol", func(fl validator.FieldLevel) bool {
			return symbolPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "isin", func(fl validator.FieldLevel) bool {
			return IsISIN(fl.Field().String())
		})
		mustRegister(v, "currency", func(fl validator.FieldLevel) bool {
			return domain.Currency(fl.Field().String()).IsValid()
		})
		mustRegister(v, "assettype", func(fl validator.FieldLevel) bool {
			return domain.AssetType(fl.Field().String()).IsValid()
		})
		mustRegister(v, "role", func(fl validator.FieldLevel) bool {
			return domain.Role(fl.Field().String()).IsValid()
		})
		mustRegister(v, "dpositive", func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && d.IsPositive()
		})
		mustRegister(v, "dnonneg", func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && !d.IsNegative()
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// Struct validates a request body and converts failures into Errors.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fieldPath(fe),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "pincode":
		return "must be exactly 6 digits"
	case "evmaddress":
		return "must be a 0x-prefixed 20-byte hex address"
	case "symbol":
		return "must be 1-12 upper-case letters or digits"
	case "isin":
		return "must be a valid ISIN"
	case "currency":
		return "is not a supported currency"
	case "assettype":
		return "is not a supported asset type"
	case "role":
		return "is not a known role"
	case "dpositive":
		return "must be greater than zero"
	case "dnonneg":
		return "must not be negative"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "gtfield":
		return "must be after " + fe.Param()
	}
	return "failed " + fe.Tag()
}

// IsPincode reports whether s is exactly six ASCII digits.
func IsPincode(s string) bool {
	return pincodePattern.MatchString(s)
}

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// Checksum returns the EIP-55 form of an address, or an error if it is not one.
func Checksum(s string) (string, error) {
	if !IsAddress(s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s).Hex(), nil
}

// IsISIN reports whether s is a well-formed ISIN with a valid Luhn check digit.
func IsISIN(s string) bool {
	if !isinPattern.MatchString(s) {
		return false
	}

	// Expand letters to two-digit numbers (A=10 ... Z=35), then Luhn.
	var digits []int
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			n := int(r-'A') + 10
			digits = append(digits, n/10, n%10)
		} else {
			digits = append(digits, int(r-'0'))
		}
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

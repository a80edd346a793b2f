package auth

import (
	"context"
	"fmt"

	"asset-tokenization-kit/internal/challenge"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/portal"
	"asset-tokenization-kit/internal/validate"
)

// PincodeInput is the body of pincode enable and disable.
type PincodeInput struct {
	Pincode string `json:"pincode" validate:"required,pincode"`
}

// UpdatePincodeInput is the body of pincode update.
type UpdatePincodeInput struct {
	Pincode    string `json:"pincode" validate:"required,pincode"`
	NewPincode string `json:"newPincode" validate:"required,pincode,nefield=Pincode"`
}

// PasswordInput is the body of flows that re-check the password.
type PasswordInput struct {
	Password string `json:"password" validate:"required"`
}

// ConfirmSecretCodesInput is the body of secret-codes confirm.
type ConfirmSecretCodesInput struct {
	Stored bool `json:"stored"`
}

// TOTPInput is the body of two-factor verify-totp.
type TOTPInput struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// EnablePincode registers a PINCODE verification on the user's wallet.
func (s *Service) EnablePincode(ctx context.Context, user *domain.User, pincode string) (err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.EnablePincode")
	defer span.End()
	defer func() { s.recordEvent("pincode_enable", err) }()

	if user.PincodeEnabled {
		return ErrAlreadyEnabled
	}
	if !validate.IsPincode(pincode) {
		return fmt.Errorf("%w: pincode must be exactly 6 digits", ErrInvalidCode)
	}

	v, err := s.wallets.CreateWalletVerification(ctx, user.Wallet, portal.VerificationSpec{
		Type:    domain.VerificationPincode,
		Name:    "pincode",
		Pincode: pincode,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("create pincode verification: %w", err)
	}

	user.PincodeEnabled = true
	user.PincodeVerificationID = v.ID
	return s.save(ctx, user)
}

// DisablePincode checks the current pincode and removes the verification.
func (s *Service) DisablePincode(ctx context.Context, user *domain.User, pincode string) (err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.DisablePincode")
	defer span.End()
	defer func() { s.recordEvent("pincode_disable", err) }()

	if !user.PincodeEnabled {
		return ErrNotEnabled
	}
	if err := s.verifyPincode(ctx, user, pincode); err != nil {
		return err
	}
	if err := s.wallets.DeleteWalletVerification(ctx, user.Wallet, user.PincodeVerificationID); err != nil {
		return fmt.Errorf("delete pincode verification: %w", err)
	}

	user.PincodeEnabled = false
	user.PincodeVerificationID = ""
	return s.save(ctx, user)
}

// UpdatePincode checks the current pincode and replaces the verification.
func (s *Service) UpdatePincode(ctx context.Context, user *domain.User, current, next string) (err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.UpdatePincode")
	defer span.End()
	defer func() { s.recordEvent("pincode_update", err) }()

	if !user.PincodeEnabled {
		return ErrNotEnabled
	}
	if !validate.IsPincode(next) {
		return fmt.Errorf("%w: pincode must be exactly 6 digits", ErrInvalidCode)
	}
	if err := s.verifyPincode(ctx, user, current); err != nil {
		return err
	}

	v, err := s.wallets.CreateWalletVerification(ctx, user.Wallet, portal.VerificationSpec{
		Type:    domain.VerificationPincode,
		Name:    "pincode",
		Pincode: next,
	})
	if err != nil {
		return fmt.Errorf("create pincode verification: %w", err)
	}
	old := user.PincodeVerificationID
	user.PincodeVerificationID = v.ID
	if err := s.save(ctx, user); err != nil {
		return err
	}
	if err := s.wallets.DeleteWalletVerification(ctx, user.Wallet, old); err != nil {
		s.log.WithError(err).WithField("verification_id", old).Warn("delete replaced pincode verification")
	}
	return nil
}

func (s *Service) verifyPincode(ctx context.Context, user *domain.User, pincode string) error {
	proof, err := challenge.ForPincode(ctx, s.wallets, user.Wallet, user.PincodeVerificationID, pincode)
	if err != nil {
		return err
	}
	ok, err := s.wallets.VerifyWalletVerificationChallenge(ctx, user.Wallet, proof.VerificationID, proof.ChallengeResponse)
	if err != nil {
		return fmt.Errorf("verify pincode: %w", err)
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

// GenerateSecretCodes re-checks the password, replaces any previous
// SECRET_CODES verification and returns the new recovery codes.
func (s *Service) GenerateSecretCodes(ctx context.Context, user *domain.User, password string) (codes []string, err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.GenerateSecretCodes")
	defer span.End()
	defer func() { s.recordEvent("secret_codes_generate", err) }()

	if err := s.checkPassword(user, password); err != nil {
		return nil, err
	}

	if old := user.SecretCodeVerificationID; old != "" {
		if err := s.wallets.DeleteWalletVerification(ctx, user.Wallet, old); err != nil {
			s.log.WithError(err).WithField("verification_id", old).Warn("delete previous secret codes")
		}
	}

	v, err := s.wallets.CreateWalletVerification(ctx, user.Wallet, portal.VerificationSpec{
		Type: domain.VerificationSecretCodes,
		Name: "secret-codes",
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create secret codes verification: %w", err)
	}

	user.SecretCodeVerificationID = v.ID
	user.SecretCodesConfirmed = false
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return v.SecretCodes(), nil
}

// ConfirmSecretCodes records that the user stored their codes.
func (s *Service) ConfirmSecretCodes(ctx context.Context, user *domain.User, stored bool) (err error) {
	defer func() { s.recordEvent("secret_codes_confirm", err) }()

	if user.SecretCodeVerificationID == "" {
		return ErrNotEnabled
	}
	if !stored {
		return ErrCodesNotStored
	}
	user.SecretCodesConfirmed = true
	return s.save(ctx, user)
}

// EnableTwoFactor re-checks the password and creates a pending OTP
// verification. It becomes active after VerifyTOTP.
func (s *Service) EnableTwoFactor(ctx context.Context, user *domain.User, password string) (uri string, err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.EnableTwoFactor")
	defer span.End()
	defer func() { s.recordEvent("two_factor_enable", err) }()

	if err := s.checkPassword(user, password); err != nil {
		return "", err
	}
	if user.TwoFactorEnabled {
		return "", ErrAlreadyEnabled
	}

	if pending := user.TwoFactorVerificationID; pending != "" {
		if err := s.wallets.DeleteWalletVerification(ctx, user.Wallet, pending); err != nil {
			s.log.WithError(err).WithField("verification_id", pending).Warn("delete pending otp verification")
		}
	}

	v, err := s.wallets.CreateWalletVerification(ctx, user.Wallet, portal.VerificationSpec{
		Type:   domain.VerificationOTP,
		Name:   "otp",
		Issuer: s.issuer,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("create otp verification: %w", err)
	}

	user.TwoFactorVerificationID = v.ID
	if err := s.save(ctx, user); err != nil {
		return "", err
	}
	return v.OTPURI(), nil
}

// VerifyTOTP checks a code against the pending OTP verification and activates it.
func (s *Service) VerifyTOTP(ctx context.Context, user *domain.User, code string) (err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.VerifyTOTP")
	defer span.End()
	defer func() { s.recordEvent("two_factor_verify", err) }()

	if user.TwoFactorVerificationID == "" {
		return ErrNotEnabled
	}
	ok, err := s.wallets.VerifyWalletVerificationChallenge(ctx, user.Wallet, user.TwoFactorVerificationID, code)
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	if !ok {
		return ErrInvalidCode
	}
	user.TwoFactorEnabled = true
	return s.save(ctx, user)
}

// DisableTwoFactor re-checks the password and removes the OTP verification.
func (s *Service) DisableTwoFactor(ctx context.Context, user *domain.User, password string) (err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.DisableTwoFactor")
	defer span.End()
	defer func() { s.recordEvent("two_factor_disable", err) }()

	if err := s.checkPassword(user, password); err != nil {
		return err
	}
	if user.TwoFactorVerificationID == "" {
		return ErrNotEnabled
	}
	if err := s.wallets.DeleteWalletVerification(ctx, user.Wallet, user.TwoFactorVerificationID); err != nil {
		return fmt.Errorf("delete otp verification: %w", err)
	}
	user.TwoFactorEnabled = false
	user.TwoFactorVerificationID = ""
	return s.save(ctx, user)
}

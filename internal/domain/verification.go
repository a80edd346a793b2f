package domain

// VerificationType is the kind of wallet verification Portal checks before
// it signs a transaction on behalf of a user.
type VerificationType string

const (
	VerificationPincode     VerificationType = "PINCODE"
	VerificationOTP         VerificationType = "OTP"
	VerificationSecretCodes VerificationType = "SECRET_CODES"
)

// IsValid checks if the verification type is a known value.
func (t VerificationType) IsValid() bool {
	return t == VerificationPincode || t == VerificationOTP || t == VerificationSecretCodes
}

// VerificationInput is what a user supplies with every mutation: the code
// they know and which verification it belongs to.
type VerificationInput struct {
	Code string           `json:"code" validate:"required"`
	Type VerificationType `json:"type" validate:"required,oneof=PINCODE OTP SECRET_CODES"`
}

// ChallengeResponse is the Portal-facing proof derived from a VerificationInput.
type ChallengeResponse struct {
	VerificationID    string `json:"verificationId"`
	ChallengeID       string `json:"challengeId,omitempty"`
	ChallengeResponse string `json:"challengeResponse"`
}

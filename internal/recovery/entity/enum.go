package entity

// ChallengePurpose discriminates what a challenge secret is good for.
type ChallengePurpose int16

const (
	// ChallengePurposeUnknown means the purpose is not known / not set.
	ChallengePurposeUnknown ChallengePurpose = 0

	// ChallengePurposeOTP is the emailed verification code for a password
	// recovery request.
	ChallengePurposeOTP ChallengePurpose = 1

	// ChallengePurposeReset is the continuation ticket minted after a
	// successful code verification, consumed by the final password reset.
	ChallengePurposeReset ChallengePurpose = 2
)

func (p ChallengePurpose) String() string {
	switch p {
	case ChallengePurposeOTP:
		return "OTP"
	case ChallengePurposeReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

package domain

import "errors"

var (
	ErrStoreUnavailable    = errors.New("counter store unavailable")
	ErrInvalidSettings     = errors.New("invalid rate limit settings")
	ErrCertificateNotFound = errors.New("certificate not found")
)

// SecurityError é uma falha de desafio anti-bot; Message é exibível ao visitante.
type SecurityError struct {
	Code    string
	Message string
}

func (e *SecurityError) Error() string {
	return e.Message
}

var (
	ErrHoneypotFilled = &SecurityError{
		Code:    "honeypot",
		Message: "Security check failed. Please reload the page and try again.",
	}
	ErrChallengeMissing = &SecurityError{
		Code:    "challenge_missing",
		Message: "Please answer the security question.",
	}
	ErrChallengeIncorrect = &SecurityError{
		Code:    "challenge_incorrect",
		Message: "Incorrect answer to the security question. Please try again.",
	}
)

func IsSecurityError(err error) bool {
	var target *SecurityError
	return errors.As(err, &target)
}

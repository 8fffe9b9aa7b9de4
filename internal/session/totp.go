package session

import (
	"marketwatch/internal/components/chrono"

	"github.com/pquerna/otp/totp"
)

// CodeGenerator produces the current second factor code.
type CodeGenerator interface {
	Code() (string, error)
}

// TOTP generates RFC 6238 codes from a base32 shared secret.
type TOTP struct {
	secret string
	clock  chrono.API
}

func NewTOTP(secret string, clock chrono.API) TOTP {
	return TOTP{secret: secret, clock: clock}
}

func (t TOTP) Code() (string, error) {
	return totp.GenerateCode(t.secret, t.clock.Now())
}

package stepn

import (
	"encoding/json"
)

const (
	CodeOK            = 0
	CodeNotAuthorized = 102001
	CodeNotFound      = 212017
)

// Outcome is the classification of a response code.
type Outcome int

const (
	Success Outcome = iota
	NotAuthorized
	NotFound
	OtherError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NotAuthorized:
		return "not_authorized"
	case NotFound:
		return "not_found"
	default:
		return "other_error"
	}
}

// Classify maps the response code of an envelope to its outcome.
func Classify(env Envelope) Outcome {
	switch env.Code {
	case CodeOK:
		return Success
	case CodeNotAuthorized:
		return NotAuthorized
	case CodeNotFound:
		return NotFound
	default:
		return OtherError
	}
}

// Envelope is the shape every endpoint answers with.
type Envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

// Err converts the outcome of the envelope into the error taxonomy, it is nil on success.
func (e Envelope) Err() error {
	switch Classify(e) {
	case Success:
		return nil
	case NotAuthorized:
		return ErrNotAuthorized
	case NotFound:
		return ErrNotFound
	default:
		return &APIError{Code: e.Code, Msg: e.Msg}
	}
}

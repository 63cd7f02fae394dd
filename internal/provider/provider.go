// Package provider abstracts the remote generative-model service behind a
// small contract: submit prompt text, receive response text or a typed
// failure. The orchestrator never inspects provider-specific error strings;
// it branches on the Fault kind alone.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Kind discriminates remote failures for slot bookkeeping.
type Kind int

const (
	// KindOther covers unrecognized errors, treated as transient.
	KindOther Kind = iota
	// KindRateLimit means the credential hit a request-rate ceiling and
	// should cool down, not be retired.
	KindRateLimit
	// KindQuota means the credential ran out of quota or billing credit.
	KindQuota
	// KindAuth means the credential was rejected.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindQuota:
		return "quota"
	case KindAuth:
		return "auth"
	default:
		return "other"
	}
}

// Permanent reports whether the failure disqualifies the credential for the
// rest of the process lifetime (until an explicit reset).
func (k Kind) Permanent() bool {
	return k == KindQuota || k == KindAuth
}

// Fault is a classified remote failure.
type Fault struct {
	Kind Kind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("provider fault (%s): %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// NewFault wraps err with a classification.
func NewFault(kind Kind, err error) *Fault {
	return &Fault{Kind: kind, Err: err}
}

// KindOf extracts the classification from an error, defaulting to KindOther
// for anything unclassified.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindOther
}

// Client submits a prompt to a remote generative model. Implementations
// must return *Fault for classified failures.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Factory builds a client for one (credential, model) pair. The
// orchestrator owns credential and model ranking; the factory only knows
// how to talk to the service.
type Factory func(apiKey, model string) Client

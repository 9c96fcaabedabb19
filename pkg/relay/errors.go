package relay

import (
	"fmt"
)

// User-facing reply texts, in the gateway's inline-markup convention.
const (
	msgInvalidLink = "*Send a valid YouTube shorts link.*"
	msgDownloading = "*Downloading*"
	msgTooLarge    = "*File size too big to send.*"
	msgTimeout     = "*Request timed out. Please try again.*"
	msgGenericErr  = "An error occurred"
	msgErrPrefix   = "*An error occurred:* "
)

// FailureKind classifies a pipeline failure; it selects both the reply the
// user sees and how the failure is logged.
type FailureKind string

const (
	KindInvalidInput FailureKind = "invalid_input"
	KindUpstream     FailureKind = "upstream_unavailable"
	KindNoFormat     FailureKind = "format_unavailable"
	KindTooLarge     FailureKind = "payload_too_large"
	KindDelivery     FailureKind = "delivery_failure"
	KindTimeout      FailureKind = "timeout"
)

// Failure is a classified pipeline error.
type Failure struct {
	Kind FailureKind
	Err  error

	// quiet suppresses the user-facing reply entirely.
	quiet bool
	// userText overrides the kind's default reply when set.
	userText string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Rejected reports whether the failure is an expected, user-recoverable
// outcome rather than an operational error.
func (f *Failure) Rejected() bool {
	return f.Kind == KindInvalidInput || f.Kind == KindTooLarge
}

// UserMessage returns the reply text for the end user, empty when the
// failure must stay silent.
func (f *Failure) UserMessage() string {
	if f.quiet {
		return ""
	}
	if f.userText != "" {
		return f.userText
	}

	switch f.Kind {
	case KindInvalidInput:
		return msgInvalidLink
	case KindTooLarge:
		return msgTooLarge
	case KindTimeout:
		return msgTimeout
	case KindDelivery:
		return msgGenericErr
	default:
		return msgErrPrefix + f.Err.Error()
	}
}

func fail(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

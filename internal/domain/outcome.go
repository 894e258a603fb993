package domain

import (
	"context"
	"errors"

	pkgerrors "github.com/kevin07696/openbanking-service/pkg/errors"
)

// OutcomeKind distinguishes how an authorization flow ended.
type OutcomeKind string

const (
	OutcomeSucceeded  OutcomeKind = "succeeded"
	OutcomeFailed     OutcomeKind = "failed"
	OutcomeIncomplete OutcomeKind = "incomplete"
)

// Outcome is what the end user is told once a flow has ended.
type Outcome struct {
	Kind    OutcomeKind
	Code    ErrorCode
	Message string
}

// Succeeded reports whether the flow completed without error.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSucceeded
}

// OutcomeOf maps the error returned by a flow to a single human readable outcome.
// Domain errors surface their own message rather than the wrapped chain;
// bank API errors surface the translated bank message.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSucceeded}
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		kind := OutcomeFailed
		if domainErr.Code == ErrorCodeAuthorizationIncomplete {
			kind = OutcomeIncomplete
		}
		return Outcome{Kind: kind, Code: domainErr.Code, Message: domainErr.Message}
	}

	if apiErr, ok := pkgerrors.AsAPIError(err); ok {
		return Outcome{Kind: OutcomeFailed, Code: ErrorCodeTransport, Message: apiErr.Message}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Outcome{
			Kind:    OutcomeIncomplete,
			Code:    ErrorCodeAuthorizationIncomplete,
			Message: ErrAuthorizationIncomplete.Message,
		}
	}

	return Outcome{Kind: OutcomeFailed, Code: ErrorCodeInternalError, Message: err.Error()}
}

package authorization

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/pkg/observability"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

// Session identifies a started SCA attempt and the method chosen for it
type Session struct {
	ResourceID      string // consent, payment or basket id
	AuthorizationID string
	Method          models.AuthenticationMethod
}

// Verdict is how the polling of one SCA attempt ended
type Verdict struct {
	Status   models.ScaStatus
	TimedOut bool
	Polls    int
}

// Flow is the resource specific half of an authorization: what to create, which
// endpoints to poll and how to judge the result. A Flow instance serves one run.
type Flow interface {
	// Resource names the authorized resource kind for logs and metrics
	Resource() string

	// StartAndSelectMethod creates whatever needs authorizing, starts SCA on it and picks the method
	StartAndSelectMethod(ctx context.Context, sameDevice bool) (*Session, error)

	SubmitUserData(ctx context.Context, session *Session) (*models.PsuDataResponse, error)

	GetAuthorizationStatus(ctx context.Context, session *Session) (*models.AuthorizationStatus, error)

	// OnFinalized settles the run once polling has stopped
	OnFinalized(ctx context.Context, session *Session, verdict Verdict) error

	// Cleanup undoes partial work after a failed run. It must not fail.
	Cleanup(ctx context.Context)
}

// Options tunes one authorization run
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration

	SameDevice bool
	TabID      string // browser tab that receives challenges, empty for none
	Redirect   string // return URL embedded in BankID deeplinks

	// AfterPoll runs between the end of polling and OnFinalized
	AfterPoll func(ctx context.Context, verdict Verdict)
}

// Authorizer drives SCA attempts to a verdict
type Authorizer struct {
	notifier ports.Notifier
	clock    timeutil.Clock
	logger   *zap.Logger
}

// NewAuthorizer creates an Authorizer. A nil clock uses the system clock.
func NewAuthorizer(notifier ports.Notifier, clock timeutil.Clock, logger *zap.Logger) *Authorizer {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Authorizer{notifier: notifier, clock: clock, logger: logger}
}

// Run authorizes flow from start to settlement. On failure the flow is cleaned up on a
// context that survives cancellation of ctx.
func (a *Authorizer) Run(ctx context.Context, flow Flow, opts Options) (Verdict, error) {
	started := a.clock.Now()
	logger := a.logger.With(zap.String("resource", flow.Resource()))

	verdict, err := a.run(ctx, flow, opts, logger)

	outcome := domain.OutcomeOf(err)
	observability.RecordAuthorization(flow.Resource(), string(outcome.Kind), verdict.Polls, a.clock.Now().Sub(started).Seconds())

	if err != nil {
		logger.Warn("Authorization did not succeed",
			zap.String("outcome", string(outcome.Kind)),
			zap.String("sca_status", string(verdict.Status)),
			zap.Error(err),
		)
		flow.Cleanup(context.WithoutCancel(ctx))
		return verdict, err
	}

	logger.Info("Authorization succeeded",
		zap.String("sca_status", string(verdict.Status)),
		zap.Int("polls", verdict.Polls),
	)
	return verdict, nil
}

func (a *Authorizer) run(ctx context.Context, flow Flow, opts Options, logger *zap.Logger) (Verdict, error) {
	session, err := flow.StartAndSelectMethod(ctx, opts.SameDevice)
	if err != nil {
		return Verdict{}, err
	}
	logger = logger.With(
		zap.String("resource_id", session.ResourceID),
		zap.String("authorization_id", session.AuthorizationID),
		zap.String("method", session.Method.MethodID),
	)

	psu, err := flow.SubmitUserData(ctx, session)
	if err != nil {
		return Verdict{}, err
	}
	if len(psu.Messages) > 0 {
		return Verdict{Status: psu.ScaStatus}, domain.NewAuthorizationRejected(models.MessageTexts(psu.Messages))
	}

	presenter := NewPresenter(a.notifier, opts.TabID, session.Method.MethodID, opts.Redirect, logger)
	presenter.Present(ctx, psu.ScaStatus, psu.ChallengeData)

	verdict := Verdict{Status: psu.ScaStatus}
	pollStart := a.clock.Now()

	for !verdict.Status.IsTerminal() && a.clock.Now().Sub(pollStart) < opts.Timeout {
		if err := a.clock.Sleep(ctx, opts.PollInterval); err != nil {
			return verdict, err
		}

		status, err := flow.GetAuthorizationStatus(ctx, session)
		if err != nil {
			return verdict, err
		}
		verdict.Polls++
		verdict.Status = status.ScaStatus

		if len(status.Messages) > 0 {
			return verdict, domain.NewAuthorizationRejected(models.MessageTexts(status.Messages))
		}

		presenter.Present(ctx, status.ScaStatus, status.ChallengeData)
	}

	verdict.TimedOut = !verdict.Status.IsTerminal()
	logger.Debug("Polling stopped",
		zap.String("sca_status", string(verdict.Status)),
		zap.Bool("timed_out", verdict.TimedOut),
		zap.Int("polls", verdict.Polls),
	)

	if opts.AfterPoll != nil {
		opts.AfterPoll(ctx, verdict)
	}

	return verdict, flow.OnFinalized(ctx, session, verdict)
}

// Settle is the resource independent part of OnFinalized: it fails a verdict that did not
// finish SCA. Flows add their own resource checks on top.
func Settle(verdict Verdict) error {
	switch {
	case verdict.Status == models.ScaFailed:
		return domain.ErrAuthorizationFailed
	case verdict.TimedOut:
		return domain.ErrAuthorizationIncomplete
	}
	return nil
}

package consent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

// consentFlow authorizes a one day, read once consent over every account with balances
type consentFlow struct {
	api    ports.ConsentAPI
	op     *models.OperationContext
	clock  timeutil.Clock
	okURL  string
	logger *zap.Logger

	consentID string
}

var _ authorization.Flow = (*consentFlow)(nil)

func (f *consentFlow) Resource() string { return "consent" }

func (f *consentFlow) StartAndSelectMethod(ctx context.Context, sameDevice bool) (*authorization.Session, error) {
	consent, err := f.api.CreateConsent(ctx, models.ConsentRequest{
		AllowBalance:    true,
		ValidUntil:      timeutil.Tomorrow(f.clock.Now()),
		FrequencyPerDay: 1,
	}, f.op)
	if err != nil {
		return nil, fmt.Errorf("create consent: %w", err)
	}
	f.consentID = consent.ConsentID
	f.logger.Info("Consent created",
		zap.String("consent_id", f.consentID),
		zap.String("status", string(consent.Status)),
	)

	res, err := f.api.StartConsentAuthorization(ctx, f.consentID, f.op, f.okURL, "")
	if err != nil {
		return nil, fmt.Errorf("start authorization of consent %s: %w", f.consentID, err)
	}

	method, err := authorization.SelectMethod(res.AuthenticationMethods, sameDevice)
	if err != nil {
		return nil, err
	}
	return &authorization.Session{
		ResourceID:      f.consentID,
		AuthorizationID: res.AuthorizationID,
		Method:          method,
	}, nil
}

func (f *consentFlow) SubmitUserData(ctx context.Context, session *authorization.Session) (*models.PsuDataResponse, error) {
	return f.api.PutConsentUserData(ctx, session.ResourceID, session.AuthorizationID, session.Method.MethodID, f.op)
}

func (f *consentFlow) GetAuthorizationStatus(ctx context.Context, session *authorization.Session) (*models.AuthorizationStatus, error) {
	return f.api.GetConsentAuthorizationStatus(ctx, session.ResourceID, session.AuthorizationID, f.op)
}

// OnFinalized requires a finished SCA and a consent the bank reports as valid
func (f *consentFlow) OnFinalized(ctx context.Context, session *authorization.Session, verdict authorization.Verdict) error {
	if err := authorization.Settle(verdict); err != nil {
		return err
	}

	status, err := f.api.GetConsentStatus(ctx, session.ResourceID, f.op)
	if err != nil {
		return fmt.Errorf("get status of consent %s: %w", session.ResourceID, err)
	}
	if status != models.ConsentValid {
		return NotValidError(status)
	}
	return nil
}

// Cleanup revokes a consent that never became usable
func (f *consentFlow) Cleanup(ctx context.Context) {
	if f.consentID == "" {
		return
	}
	if err := f.api.DeleteConsent(ctx, f.consentID, f.op); err != nil {
		f.logger.Error("Failed to delete consent",
			zap.String("consent_id", f.consentID),
			zap.Error(err),
		)
	}
}

// NotValidError explains why a consent cannot be used
func NotValidError(status models.ConsentStatus) error {
	var message string
	switch status {
	case models.ConsentRejected:
		message = "Consent was rejected."
	case models.ConsentRevokedByPsu:
		message = "Consent was revoked."
	case models.ConsentExpired:
		message = "Consent has expired."
	case models.ConsentTerminatedByTpp:
		message = "Consent was terminated."
	default:
		message = "Consent was not valid."
	}
	return domain.NewDomainError(domain.ErrorCodeAuthorizationFailed, message).
		WithDetail("consent_status", string(status))
}

package consent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
	"github.com/kevin07696/openbanking-service/pkg/shutdown"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
	"github.com/kevin07696/openbanking-service/test/mocks"
)

type fakeConsentAPI struct {
	mu sync.Mutex

	request   models.ConsentRequest
	op        *models.OperationContext
	createErr error
	polls     []models.ScaStatus
	pollSeen  int
	status    models.ConsentStatus
	accounts  []models.AccountInformation
	balance   []bool
	deleted   []string
}

func (f *fakeConsentAPI) CreateConsent(ctx context.Context, req models.ConsentRequest, op *models.OperationContext) (*models.ConsentResource, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.request = req
	f.op = op
	return &models.ConsentResource{ConsentID: "consent-1", Status: models.ConsentReceived}, nil
}

func (f *fakeConsentAPI) GetConsent(ctx context.Context, consentID string, op *models.OperationContext) (*models.ConsentDetails, error) {
	return &models.ConsentDetails{ConsentID: consentID, Status: f.status}, nil
}

func (f *fakeConsentAPI) GetConsentStatus(ctx context.Context, consentID string, op *models.OperationContext) (models.ConsentStatus, error) {
	return f.status, nil
}

func (f *fakeConsentAPI) DeleteConsent(ctx context.Context, consentID string, op *models.OperationContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, consentID)
	return nil
}

func (f *fakeConsentAPI) StartConsentAuthorization(ctx context.Context, consentID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error) {
	return &models.AuthorizationResource{
		AuthorizationID:       "auth-1",
		ScaStatus:             models.ScaReceived,
		AuthenticationMethods: []models.AuthenticationMethod{{MethodID: "mbid"}, {MethodID: "mbid_same_device"}},
	}, nil
}

func (f *fakeConsentAPI) GetConsentAuthorizationIDs(ctx context.Context, consentID string, op *models.OperationContext) ([]string, error) {
	return []string{"auth-1"}, nil
}

func (f *fakeConsentAPI) GetConsentAuthorizationStatus(ctx context.Context, consentID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error) {
	i := f.pollSeen
	if i >= len(f.polls) {
		i = len(f.polls) - 1
	}
	f.pollSeen++
	return &models.AuthorizationStatus{ScaStatus: f.polls[i]}, nil
}

func (f *fakeConsentAPI) PutConsentUserData(ctx context.Context, consentID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error) {
	return &models.PsuDataResponse{
		ScaStatus:     models.ScaStarted,
		ChallengeData: &models.ChallengeData{AutoStartToken: "ast-1"},
	}, nil
}

func (f *fakeConsentAPI) GetAccounts(ctx context.Context, consentID string, withBalance bool, op *models.OperationContext) ([]models.AccountInformation, error) {
	f.balance = append(f.balance, withBalance)
	return f.accounts, nil
}

func setupConsentTest(t *testing.T) (*Service, *fakeConsentAPI, *mocks.MockNotifier, *shutdown.InFlightTracker) {
	t.Helper()

	api := &fakeConsentAPI{
		polls:  []models.ScaStatus{models.ScaStarted, models.ScaFinalised},
		status: models.ConsentValid,
		accounts: []models.AccountInformation{
			{
				ResourceID: "acc-1",
				IBAN:       "SE1234567890",
				Currency:   "SEK",
				Name:       "Salary",
				Balances: []models.Balance{
					{Amount: decimal.RequireFromString("1500.25"), Currency: "SEK", BalanceType: "closingBooked"},
					{Amount: decimal.RequireFromString("1200.00"), Currency: "SEK", BalanceType: models.BalanceInterimAvailable},
				},
			},
			{ResourceID: "acc-2", IBAN: "SE0987654321", Currency: "SEK", Name: "Savings"},
		},
	}
	notifier := mocks.NewMockNotifier()
	clock := timeutil.NewManualClock(time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC))
	logger := zap.NewNop()
	tracker := shutdown.NewInFlightTracker("consents", logger)

	svc := NewService(api, authorization.NewAuthorizer(notifier, clock, logger), notifier, tracker, clock, Config{
		Flow:         models.FlowDecoupled,
		PollInterval: 2 * time.Second,
		Timeout:      time.Minute,
	}, logger)

	return svc, api, notifier, tracker
}

func optionsRequest() OptionsRequest {
	return OptionsRequest{
		PersonalNumber: "19900101-1234",
		BicFi:          "ESSESESS",
		TabID:          "tab-1",
		ClientIP:       "203.0.113.10",
		UserAgent:      "Mozilla/5.0",
	}
}

func TestAccountOptions_Success(t *testing.T) {
	svc, api, notifier, _ := setupConsentTest(t)

	options, err := svc.AccountOptions(context.Background(), optionsRequest())

	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "SE1234567890", options[0].Account)
	assert.Equal(t, "acc-1", options[0].ResourceID)
	require.NotNil(t, options[0].Balance)
	assert.Equal(t, "1200", options[0].Balance.String())
	assert.Nil(t, options[1].Balance)

	assert.Equal(t, models.ConsentRequest{
		AllowBalance:    true,
		ValidUntil:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		FrequencyPerDay: 1,
	}, api.request)
	assert.Equal(t, "199001011234", api.op.PersonalID)
	assert.Equal(t, "ESSESESS", api.op.ServiceProviderID)
	assert.Equal(t, []bool{true}, api.balance)
	assert.Empty(t, api.deleted)

	assert.Equal(t, []ports.EventType{ports.EventOpenBankIDApp, ports.EventShowAccountInfo}, notifier.Events())
	info := notifier.Pushes()[1].Payload.(AccountInfoPayload)
	assert.Len(t, info.AccountInfo, 2)
	assert.Equal(t, accountInfoMessage, info.Message)
}

func TestAccountOptions_SandboxDropsPersonalNumber(t *testing.T) {
	svc, api, _, _ := setupConsentTest(t)
	svc.cfg.Sandbox = true

	_, err := svc.AccountOptions(context.Background(), optionsRequest())

	require.NoError(t, err)
	assert.Empty(t, api.op.PersonalID)
}

func TestAccountOptions_ConsentNotValid(t *testing.T) {
	statuses := map[models.ConsentStatus]string{
		models.ConsentRejected:        "Consent was rejected.",
		models.ConsentRevokedByPsu:    "Consent was revoked.",
		models.ConsentExpired:         "Consent has expired.",
		models.ConsentTerminatedByTpp: "Consent was terminated.",
		models.ConsentReceived:        "Consent was not valid.",
	}

	for status, message := range statuses {
		t.Run(string(status), func(t *testing.T) {
			svc, api, notifier, _ := setupConsentTest(t)
			api.status = status

			options, err := svc.AccountOptions(context.Background(), optionsRequest())

			assert.Nil(t, options)
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodeAuthorizationFailed))
			assert.Equal(t, message, domain.OutcomeOf(err).Message)
			assert.Equal(t, []string{"consent-1"}, api.deleted)
			assert.Empty(t, api.balance)
			assert.Zero(t, notifier.Count(ports.EventShowAccountInfo))
		})
	}
}

func TestAccountOptions_ScaTimeout(t *testing.T) {
	svc, api, _, _ := setupConsentTest(t)
	api.polls = []models.ScaStatus{models.ScaStarted}

	_, err := svc.AccountOptions(context.Background(), optionsRequest())

	assert.ErrorIs(t, err, domain.ErrAuthorizationIncomplete)
	assert.Equal(t, []string{"consent-1"}, api.deleted)
}

func TestAccountOptions_RequiresBank(t *testing.T) {
	svc, _, _, _ := setupConsentTest(t)
	req := optionsRequest()
	req.BicFi = ""

	_, err := svc.AccountOptions(context.Background(), req)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))

	err = svc.StartAccountOptions(context.Background(), req)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
}

func TestStartAccountOptions_PushesFailure(t *testing.T) {
	svc, api, notifier, tracker := setupConsentTest(t)
	api.createErr = errors.New("bank unavailable")

	require.NoError(t, svc.StartAccountOptions(context.Background(), optionsRequest()))
	require.NoError(t, tracker.Shutdown(context.Background()))

	require.Equal(t, []ports.EventType{ports.EventTransactionFailed}, notifier.Events())
	failed := notifier.Pushes()[0].Payload.(FailedPayload)
	assert.Contains(t, failed.ErrorMessage, "bank unavailable")
	assert.Empty(t, api.deleted)

	err := svc.StartAccountOptions(context.Background(), optionsRequest())
	assert.ErrorContains(t, err, "shutting down")
}

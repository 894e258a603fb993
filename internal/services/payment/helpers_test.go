package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/services/authorization"
	"github.com/kevin07696/openbanking-service/pkg/shutdown"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
	"github.com/kevin07696/openbanking-service/test/mocks"
)

var testAccount = ServiceAccount{
	IBAN: "SE4550000000058398257466",
	Name: "Neuron AB",
	BIC:  "ESSESESS",
}

var errBankDown = errors.New("bank unavailable")

// fakeBankAPI is a scripted ports.PaymentInitiationAPI. Leg outcomes are keyed by creditor
// IBAN because bulk legs are created concurrently.
type fakeBankAPI struct {
	mu sync.Mutex

	nextID    int
	creditors map[string]string // payment id -> creditor IBAN
	created   []models.PaymentInitiationRequest
	deleted   []string

	createErr        map[string]error
	statusByCreditor map[string]models.PaymentStatus
	messagesByCred   map[string][]models.TppMessage

	basketPayments []string
	basketStatus   models.BasketStatus
	deletedBaskets []string

	methods  []models.AuthenticationMethod
	psu      *models.PsuDataResponse
	polls    []models.ScaStatus
	pollSeen int
}

func newFakeBankAPI() *fakeBankAPI {
	return &fakeBankAPI{
		creditors:        make(map[string]string),
		createErr:        make(map[string]error),
		statusByCreditor: make(map[string]models.PaymentStatus),
		messagesByCred:   make(map[string][]models.TppMessage),
		basketStatus:     models.BasketACTC,
		methods: []models.AuthenticationMethod{
			{MethodID: "mbid"},
			{MethodID: "mbid_animated_qr_image"},
		},
		psu: &models.PsuDataResponse{
			ScaStatus: models.ScaStarted,
			ChallengeData: &models.ChallengeData{
				ImageURL:       "https://bank.example/qr/1.png",
				AutoStartToken: "ast-1",
			},
		},
		polls: []models.ScaStatus{models.ScaFinalised},
	}
}

func (f *fakeBankAPI) CreatePayment(ctx context.Context, req models.PaymentInitiationRequest, op *models.OperationContext) (*models.PaymentResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[req.CreditorIBAN]; err != nil {
		return nil, err
	}
	f.nextID++
	id := fmt.Sprintf("pay-%d", f.nextID)
	f.creditors[id] = req.CreditorIBAN
	f.created = append(f.created, req)
	return &models.PaymentResource{PaymentID: id, TransactionStatus: models.PaymentRCVD}, nil
}

func (f *fakeBankAPI) DeletePayment(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, paymentID)
	return nil
}

func (f *fakeBankAPI) GetPaymentStatus(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) (*models.PaymentTransactionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	creditor := f.creditors[paymentID]
	status, ok := f.statusByCreditor[creditor]
	if !ok {
		status = models.PaymentACSC
	}
	return &models.PaymentTransactionStatus{Status: status, Messages: f.messagesByCred[creditor]}, nil
}

func (f *fakeBankAPI) authorization(id string) *models.AuthorizationResource {
	return &models.AuthorizationResource{
		AuthorizationID:       "auth-" + id,
		ScaStatus:             models.ScaReceived,
		AuthenticationMethods: f.methods,
	}
}

func (f *fakeBankAPI) StartPaymentAuthorization(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error) {
	return f.authorization(paymentID), nil
}

func (f *fakeBankAPI) GetPaymentAuthorizationIDs(ctx context.Context, product models.PaymentProduct, paymentID string, op *models.OperationContext) ([]string, error) {
	return []string{"auth-" + paymentID}, nil
}

func (f *fakeBankAPI) nextPoll() *models.AuthorizationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.pollSeen
	if i >= len(f.polls) {
		i = len(f.polls) - 1
	}
	f.pollSeen++
	return &models.AuthorizationStatus{ScaStatus: f.polls[i]}
}

func (f *fakeBankAPI) GetPaymentAuthorizationStatus(ctx context.Context, product models.PaymentProduct, paymentID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error) {
	return f.nextPoll(), nil
}

func (f *fakeBankAPI) PutPaymentUserData(ctx context.Context, product models.PaymentProduct, paymentID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error) {
	return f.psu, nil
}

func (f *fakeBankAPI) CreateBasket(ctx context.Context, paymentIDs []string, op *models.OperationContext, okURL, nokURL string) (*models.BasketResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.basketPayments = append([]string(nil), paymentIDs...)
	return &models.BasketResource{BasketID: "basket-1", TransactionStatus: models.BasketRCVD}, nil
}

func (f *fakeBankAPI) DeleteBasket(ctx context.Context, basketID string, op *models.OperationContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedBaskets = append(f.deletedBaskets, basketID)
	return nil
}

func (f *fakeBankAPI) GetBasketStatus(ctx context.Context, basketID string, op *models.OperationContext) (*models.BasketTransactionStatus, error) {
	return &models.BasketTransactionStatus{Status: f.basketStatus}, nil
}

func (f *fakeBankAPI) StartBasketAuthorization(ctx context.Context, basketID string, op *models.OperationContext, okURL, nokURL string) (*models.AuthorizationResource, error) {
	return f.authorization(basketID), nil
}

func (f *fakeBankAPI) GetBasketAuthorizationIDs(ctx context.Context, basketID string, op *models.OperationContext) ([]string, error) {
	return []string{"auth-" + basketID}, nil
}

func (f *fakeBankAPI) GetBasketAuthorizationStatus(ctx context.Context, basketID, authorizationID string, op *models.OperationContext) (*models.AuthorizationStatus, error) {
	return f.nextPoll(), nil
}

func (f *fakeBankAPI) PutBasketUserData(ctx context.Context, basketID, authorizationID, methodID string, op *models.OperationContext) (*models.PsuDataResponse, error) {
	return f.psu, nil
}

func (f *fakeBankAPI) deletedBasketIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletedBaskets...)
}

type serviceFixture struct {
	service  *Service
	bank     *fakeBankAPI
	repo     *mocks.MockPaymentRepository
	notifier *mocks.MockNotifier
	tracker  *shutdown.InFlightTracker
	clock    *timeutil.ManualClock
	factory  *Factory
}

// wait blocks until every background flow has finished
func (f *serviceFixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.tracker.Shutdown(ctx))
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()

	bank := newFakeBankAPI()
	repo := mocks.NewMockPaymentRepository()
	notifier := mocks.NewMockNotifier()
	clock := timeutil.NewManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	factory := NewFactory(bank, repo, testAccount, 2, logger)
	tracker := shutdown.NewInFlightTracker("payments", logger)
	svc := NewService(bank, repo, notifier, factory,
		authorization.NewAuthorizer(notifier, clock, logger),
		tracker, clock,
		Config{
			Flow:         models.FlowDecoupled,
			PollInterval: 2 * time.Second,
			Timeout:      time.Minute,
		},
		logger,
	)

	return &serviceFixture{
		service:  svc,
		bank:     bank,
		repo:     repo,
		notifier: notifier,
		tracker:  tracker,
		clock:    clock,
		factory:  factory,
	}
}

func testOperation() *models.OperationContext {
	return models.NewOperationContext("203.0.113.10", "Mozilla/5.0", models.FlowDecoupled, "199001011234", "", testAccount.BIC)
}

func singleInstruction() models.PaymentInstruction {
	return models.PaymentInstruction{
		Account:           "alice@example.org",
		Amount:            decimal.RequireFromString("125.50"),
		Currency:          "SEK",
		ToBankAccount:     "SE3550000000054910000003",
		ToBankAccountName: "Alice Andersson",
		Message:           "rent",
		PersonalNumber:    "19900101-1234",
		TabID:             "tab-1",
	}
}

func bulkInstruction() models.PaymentInstruction {
	in := singleInstruction()
	in.Splits = []models.SplitPaymentOption{
		{BankAccount: "SE1111", AccountName: "First", Amount: decimal.NewFromInt(100), Description: "share 1"},
		{BankAccount: "SE2222", AccountName: "Second", Amount: decimal.NewFromInt(50), Description: "share 2"},
		{BankAccount: "SE3333", AccountName: "Third", Amount: decimal.NewFromInt(25), Description: "share 3"},
	}
	return in
}

// storedPayments creates records for instruction in the repository
func storedPayments(t *testing.T, f *serviceFixture, in models.PaymentInstruction) []*models.OutboundPayment {
	t.Helper()
	records := f.factory.Records(in, "NDEASESS", f.clock.Now())
	for _, r := range records {
		require.NoError(t, f.repo.Create(context.Background(), r))
	}
	return records
}

func objectIDs(payments []*models.OutboundPayment) []string {
	ids := make([]string, len(payments))
	for i, p := range payments {
		ids[i] = p.ObjectID
	}
	return ids
}

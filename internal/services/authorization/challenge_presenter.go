package authorization

import (
	"context"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

const (
	titleAuthorizePayment   = "Authorize payment"
	titleAuthorizeRecipient = "Authorize recipient"

	scanMessage = "Scan the following QR-code with your Bank-ID app, or click on it if your Bank-ID is installed on your computer."
)

// PresenterState remembers what has already been shown during one authorization
type PresenterState struct {
	PaymentSent  bool
	CreditorSent bool
	LastImageURL string
}

// Action is a push to perform; the zero Action means nothing to show
type Action struct {
	Event   ports.EventType
	Payload interface{}
}

// None reports whether the action pushes nothing
func (a Action) None() bool {
	return a.Event == ""
}

// QRCodePayload is sent with ShowQRCode
type QRCodePayload struct {
	BankIDURL      string `json:"BankIdUrl"`
	MobileAppURL   string `json:"MobileAppUrl"`
	AutoStartToken string `json:"AutoStartToken"`
	ImageURL       string `json:"ImageUrl"`
	Title          string `json:"title"`
	Message        string `json:"message"`
}

// OpenAppPayload is sent with OpenBankIdApp
type OpenAppPayload struct {
	BankIDURL      string `json:"BankIdUrl"`
	AutoStartToken string `json:"AutoStartToken"`
	MobileAppURL   string `json:"MobileAppUrl"`
}

// Decide chooses what to show for a challenge observed at status.
// A new QR image is always shown. A deeplink alone is shown once per phase:
// the creditor phase (authoriseCreditorAccountStarted) and the payment phase (everything else).
func Decide(state PresenterState, status models.ScaStatus, challenge *models.ChallengeData, methodID, redirect string) (Action, PresenterState) {
	if challenge == nil || status.IsTerminal() {
		return Action{}, state
	}

	isImage := challenge.HasImage()
	switch {
	case isImage:
		if challenge.ImageURL == state.LastImageURL {
			return Action{}, state
		}
		state.LastImageURL = challenge.ImageURL
	case challenge.BankIDURL() == "":
		return Action{}, state
	}

	title := titleAuthorizePayment
	if status == models.ScaAuthoriseCreditorAccountStarted {
		if state.CreditorSent && !isImage {
			return Action{}, state
		}
		state.CreditorSent = true
		title = titleAuthorizeRecipient
	} else {
		if state.PaymentSent && !isImage {
			return Action{}, state
		}
		state.PaymentSent = true
	}

	if isImage || IsQRMethod(methodID) {
		return Action{
			Event: ports.EventShowQRCode,
			Payload: QRCodePayload{
				BankIDURL:      challenge.BankIDURL(),
				MobileAppURL:   challenge.MobileAppURL(redirect),
				AutoStartToken: challenge.AutoStartToken,
				ImageURL:       challenge.ImageURL,
				Title:          title,
				Message:        scanMessage,
			},
		}, state
	}

	return Action{
		Event: ports.EventOpenBankIDApp,
		Payload: OpenAppPayload{
			BankIDURL:      challenge.BankIDURL(),
			AutoStartToken: challenge.AutoStartToken,
			MobileAppURL:   challenge.MobileAppURL(redirect),
		},
	}, state
}

// Presenter shows SCA challenges to one browser tab
type Presenter struct {
	notifier ports.Notifier
	logger   *zap.Logger

	tabID    string
	methodID string
	redirect string
	state    PresenterState
}

// NewPresenter creates a presenter for tabID. An empty tabID disables all pushes.
func NewPresenter(notifier ports.Notifier, tabID, methodID, redirect string, logger *zap.Logger) *Presenter {
	return &Presenter{
		notifier: notifier,
		logger:   logger,
		tabID:    tabID,
		methodID: methodID,
		redirect: redirect,
	}
}

// Present pushes the challenge if it is new. Push failures are logged and do not stop the authorization.
func (p *Presenter) Present(ctx context.Context, status models.ScaStatus, challenge *models.ChallengeData) {
	if p == nil || p.notifier == nil || p.tabID == "" {
		return
	}

	action, next := Decide(p.state, status, challenge, p.methodID, p.redirect)
	p.state = next
	if action.None() {
		return
	}

	if err := p.notifier.Push(ctx, []string{p.tabID}, action.Event, action.Payload); err != nil {
		p.logger.Warn("Failed to push challenge",
			zap.String("tab_id", p.tabID),
			zap.String("event", string(action.Event)),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("Challenge pushed",
		zap.String("tab_id", p.tabID),
		zap.String("event", string(action.Event)),
		zap.String("sca_status", string(status)),
	)
}

package models

import (
	"strings"

	"github.com/kevin07696/openbanking-service/internal/domain"
)

// ConsentStatus is the server-driven state of a consent resource
type ConsentStatus string

const (
	ConsentReceived        ConsentStatus = "received"
	ConsentRejected        ConsentStatus = "rejected"
	ConsentValid           ConsentStatus = "valid"
	ConsentRevokedByPsu    ConsentStatus = "revokedByPsu"
	ConsentExpired         ConsentStatus = "expired"
	ConsentTerminatedByTpp ConsentStatus = "terminatedByTpp"
)

// ScaStatus is the state of one SCA authorization attempt
type ScaStatus string

const (
	ScaReceived                        ScaStatus = "received"
	ScaAuthenticationStarted           ScaStatus = "authenticationStarted"
	ScaAuthoriseCreditorAccountStarted ScaStatus = "authoriseCreditorAccountStarted"
	ScaPsuIdentified                   ScaStatus = "psuIdentified"
	ScaPsuAuthenticated                ScaStatus = "psuAuthenticated"
	ScaMethodSelected                  ScaStatus = "scaMethodSelected"
	ScaStarted                         ScaStatus = "started"
	ScaFinalised                       ScaStatus = "finalised"
	ScaFailed                          ScaStatus = "failed"
	ScaExempted                        ScaStatus = "exempted"
)

// IsTerminal reports whether polling should stop at this status.
func (s ScaStatus) IsTerminal() bool {
	return s == ScaFinalised || s == ScaFailed || s == ScaExempted
}

// PaymentStatus is the ISO 20022 transaction status of a payment initiation
type PaymentStatus string

const (
	PaymentACCC PaymentStatus = "ACCC" // accepted settlement completed (creditor)
	PaymentACCP PaymentStatus = "ACCP" // accepted customer profile
	PaymentACSC PaymentStatus = "ACSC" // accepted settlement completed (debtor)
	PaymentACSP PaymentStatus = "ACSP" // accepted settlement in process
	PaymentACTC PaymentStatus = "ACTC" // accepted technical validation
	PaymentACWC PaymentStatus = "ACWC" // accepted with change
	PaymentACWP PaymentStatus = "ACWP" // accepted without posting
	PaymentRCVD PaymentStatus = "RCVD" // received
	PaymentPDNG PaymentStatus = "PDNG" // pending
	PaymentRJCT PaymentStatus = "RJCT" // rejected
	PaymentCANC PaymentStatus = "CANC" // cancelled
	PaymentACFC PaymentStatus = "ACFC" // accepted funds checked
	PaymentPATC PaymentStatus = "PATC" // partially accepted technical correct
	PaymentPART PaymentStatus = "PART" // partially accepted
)

// BasketStatus is the transaction status of a signing basket
type BasketStatus string

const (
	BasketACSP BasketStatus = "ACSP"
	BasketACTC BasketStatus = "ACTC"
	BasketACWC BasketStatus = "ACWC"
	BasketRCVD BasketStatus = "RCVD"
	BasketRJCT BasketStatus = "RJCT"
)

// PaymentProduct selects the payment initiation endpoint
type PaymentProduct string

const (
	ProductDomestic            PaymentProduct = "domestic"
	ProductSepaCreditTransfers PaymentProduct = "sepa-credit-transfers"
	ProductInternational       PaymentProduct = "international"
)

// AuthenticationType is the kind of SCA method the bank offers
type AuthenticationType string

const (
	AuthSmsOTP   AuthenticationType = "SMS_OTP"
	AuthChipOTP  AuthenticationType = "CHIP_OTP"
	AuthPhotoOTP AuthenticationType = "PHOTO_OTP"
	AuthPushOTP  AuthenticationType = "PUSH_OTP"
)

var (
	consentStatuses = index(ConsentReceived, ConsentRejected, ConsentValid,
		ConsentRevokedByPsu, ConsentExpired, ConsentTerminatedByTpp)

	scaStatuses = index(ScaReceived, ScaAuthenticationStarted, ScaAuthoriseCreditorAccountStarted,
		ScaPsuIdentified, ScaPsuAuthenticated, ScaMethodSelected, ScaStarted,
		ScaFinalised, ScaFailed, ScaExempted)

	paymentStatuses = index(PaymentACCC, PaymentACCP, PaymentACSC, PaymentACSP, PaymentACTC,
		PaymentACWC, PaymentACWP, PaymentRCVD, PaymentPDNG, PaymentRJCT, PaymentCANC,
		PaymentACFC, PaymentPATC, PaymentPART)

	basketStatuses = index(BasketACSP, BasketACTC, BasketACWC, BasketRCVD, BasketRJCT)

	paymentProducts = index(ProductDomestic, ProductSepaCreditTransfers, ProductInternational)

	authenticationTypes = index(AuthSmsOTP, AuthChipOTP, AuthPhotoOTP, AuthPushOTP)
)

func index[T ~string](values ...T) map[string]T {
	m := make(map[string]T, len(values))
	for _, v := range values {
		m[strings.ToLower(string(v))] = v
	}
	return m
}

func parse[T ~string](known map[string]T, kind, value string) (T, error) {
	if v, ok := known[strings.ToLower(strings.TrimSpace(value))]; ok {
		return v, nil
	}
	var zero T
	return zero, domain.NewUnrecognizedStatusError(kind, value)
}

// ParseConsentStatus parses a consent status case-insensitively.
func ParseConsentStatus(s string) (ConsentStatus, error) {
	return parse(consentStatuses, "consent status", s)
}

// ParseScaStatus parses an SCA status case-insensitively.
func ParseScaStatus(s string) (ScaStatus, error) {
	return parse(scaStatuses, "SCA status", s)
}

// ParsePaymentStatus parses a payment transaction status case-insensitively.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	return parse(paymentStatuses, "transaction status", s)
}

// ParseBasketStatus parses a basket transaction status case-insensitively.
func ParseBasketStatus(s string) (BasketStatus, error) {
	return parse(basketStatuses, "basket status", s)
}

// ParsePaymentProduct accepts both the path form and the underscore form.
func ParsePaymentProduct(s string) (PaymentProduct, error) {
	return parse(paymentProducts, "payment product", strings.ReplaceAll(s, "_", "-"))
}

// ParseAuthenticationType parses an SCA method type case-insensitively.
func ParseAuthenticationType(s string) (AuthenticationType, error) {
	return parse(authenticationTypes, "authentication type", s)
}

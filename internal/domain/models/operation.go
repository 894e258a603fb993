package models

import "strings"

// AuthorizationFlow is how SCA is delivered to the PSU
type AuthorizationFlow string

const (
	FlowRedirect  AuthorizationFlow = "redirect"
	FlowDecoupled AuthorizationFlow = "decoupled"
)

// Header is a single protocol header, kept ordered for deterministic requests.
type Header struct {
	Key   string
	Value string
}

// OperationContext carries the PSU context of one end-user operation.
// It is immutable; Headers is computed once at construction.
type OperationContext struct {
	ClientIPAddress   string
	UserAgent         string
	Flow              AuthorizationFlow
	PersonalID        string
	OrganizationID    string
	ServiceProviderID string // BIC of the debtor bank

	headers []Header
}

// NewOperationContext builds the context and derives its PSU headers.
func NewOperationContext(ip, userAgent string, flow AuthorizationFlow, personalID, organizationID, bic string) *OperationContext {
	op := &OperationContext{
		ClientIPAddress:   ip,
		UserAgent:         userAgent,
		Flow:              flow,
		PersonalID:        personalID,
		OrganizationID:    organizationID,
		ServiceProviderID: bic,
	}

	redirect := "false"
	if flow == FlowRedirect {
		redirect = "true"
	}

	op.headers = []Header{
		{Key: "PSU-IP-Address", Value: ip},
		{Key: "PSU-User-Agent", Value: userAgent},
		{Key: "X-BicFi", Value: bic},
		{Key: "TPP-Redirect-Preferred", Value: redirect},
	}
	if personalID != "" {
		op.headers = append(op.headers, Header{Key: "PSU-ID", Value: personalID})
	}
	if organizationID != "" {
		op.headers = append(op.headers, Header{Key: "PSU-Corporate-ID", Value: organizationID})
	}

	return op
}

// Headers returns a copy of the PSU headers.
func (o *OperationContext) Headers() []Header {
	if o == nil {
		return nil
	}
	return append([]Header(nil), o.headers...)
}

// WithHeaders returns the PSU headers followed by extra.
func (o *OperationContext) WithHeaders(extra ...Header) []Header {
	return append(o.Headers(), extra...)
}

// WithCallbacks returns the PSU headers plus the redirect callback URLs that are set.
func (o *OperationContext) WithCallbacks(okURL, nokURL string) []Header {
	headers := o.Headers()
	if okURL != "" {
		headers = append(headers, Header{Key: "TPP-Redirect-URI", Value: okURL})
	}
	if nokURL != "" {
		headers = append(headers, Header{Key: "TPP-Nok-Redirect-URI", Value: nokURL})
	}
	return headers
}

// IsCorporate reports whether the operation acts for an organization.
func (o *OperationContext) IsCorporate() bool {
	return o != nil && o.OrganizationID != ""
}

var personalIDSeparators = strings.NewReplacer("-", "", ".", "", " ", "")

// NormalizePersonalID strips separators from a personal or organization number.
func NormalizePersonalID(s string) string {
	return personalIDSeparators.Replace(strings.TrimSpace(s))
}

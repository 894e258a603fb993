package models

import (
	"net/url"
	"strings"
)

// Links holds the hypermedia links returned with a resource, keyed by relation.
type Links map[string]string

// AuthenticationMethod is one SCA option offered by the bank
type AuthenticationMethod struct {
	Type     AuthenticationType
	MethodID string
	Name     string
}

// TppMessage is an error or informational message attached to a response
type TppMessage struct {
	Category string
	Text     string
}

// MessageTexts returns the texts of the given messages in order.
func MessageTexts(messages []TppMessage) []string {
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		texts = append(texts, m.Text)
	}
	return texts
}

// ChallengeData is what the bank wants shown to the PSU during an interactive SCA step.
type ChallengeData struct {
	AutoStartToken string
	ImageURL       string
}

// HasImage reports whether a QR image is available.
func (c *ChallengeData) HasImage() bool {
	return c != nil && c.ImageURL != ""
}

// BankIDURL is the BankID launch URL for the auto start token, empty if there is none.
func (c *ChallengeData) BankIDURL() string {
	if c == nil || c.AutoStartToken == "" {
		return ""
	}
	return "https://app.bankid.com/?autostarttoken=" + c.AutoStartToken + "&redirect=null"
}

// MobileAppURL is the deeplink that opens the BankID app on the same device.
func (c *ChallengeData) MobileAppURL(redirect string) string {
	if c == nil || c.AutoStartToken == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("bankid:///?autostarttoken=")
	sb.WriteString(url.QueryEscape(c.AutoStartToken))
	sb.WriteString("&redirect=")
	if redirect == "" {
		sb.WriteString("null")
	} else {
		sb.WriteString(url.QueryEscape(redirect))
	}
	return sb.String()
}

// AuthorizationResource is the result of starting an SCA attempt on a consent, payment or basket
type AuthorizationResource struct {
	AuthorizationID       string
	ScaStatus             ScaStatus
	AuthenticationMethods []AuthenticationMethod
	Links                 Links
}

// PsuDataResponse is the bank's answer to submitting the chosen authentication method
type PsuDataResponse struct {
	ScaStatus     ScaStatus
	ChosenMethod  *AuthenticationMethod
	PsuMessage    string
	ChallengeData *ChallengeData
	Messages      []TppMessage
	Links         Links
}

// AuthorizationStatus is the polled state of an SCA attempt
type AuthorizationStatus struct {
	ScaStatus     ScaStatus
	ChallengeData *ChallengeData
	Messages      []TppMessage
}

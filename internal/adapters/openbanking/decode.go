package openbanking

import (
	"encoding/json"
	"errors"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// validator is implemented by every response wire type.
// validate returns the name of the first missing mandatory field, or "".
type validator interface {
	validate() string
}

// decode unmarshals body into v and checks its mandatory fields.
// Both failures are reported as a PROTOCOL_DECODE error naming resource, operation and field.
func decode(body []byte, resource, operation string, v validator) error {
	if err := json.Unmarshal(body, v); err != nil {
		field := ""
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field = typeErr.Field
		}
		decodeErr := domain.NewProtocolDecodeError(resource, operation, field)
		decodeErr.Err = err
		return decodeErr
	}

	if field := v.validate(); field != "" {
		return domain.NewProtocolDecodeError(resource, operation, field)
	}
	return nil
}

// decodeEach decodes every element of a JSON array, skipping elements that fail to decode or validate
func decodeEach[T any, PT interface {
	*T
	validator
}](items []json.RawMessage) []T {
	out := make([]T, 0, len(items))
	for _, raw := range items {
		var item T
		if err := json.Unmarshal(raw, PT(&item)); err != nil {
			continue
		}
		if PT(&item).validate() != "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func missing(s *string) bool { return s == nil }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// links converts the {"rel": {"href": "..."}} object into models.Links.
// Entries without an href are ignored.
func (l linksJSON) toModel() models.Links {
	out := make(models.Links, len(l))
	for rel, raw := range l {
		var link struct {
			Href *string `json:"href"`
		}
		if json.Unmarshal(raw, &link) == nil && link.Href != nil {
			out[rel] = *link.Href
		}
	}
	return out
}

// errorMessages keeps the ERROR category messages that carry text
func errorMessages(messages []tppMessageJSON) []models.TppMessage {
	var out []models.TppMessage
	for _, m := range messages {
		if m.Category == "ERROR" && m.Text != "" {
			out = append(out, models.TppMessage{Category: "ERROR", Text: m.Text})
		}
	}
	return out
}

// authenticationMethods decodes the scaMethods array, skipping unknown method types
func authenticationMethods(items []json.RawMessage) []models.AuthenticationMethod {
	decoded := decodeEach[scaMethodJSON](items)
	out := make([]models.AuthenticationMethod, 0, len(decoded))
	for _, m := range decoded {
		if method, ok := m.toModel(); ok {
			out = append(out, method)
		}
	}
	return out
}

func (m scaMethodJSON) toModel() (models.AuthenticationMethod, bool) {
	t, err := models.ParseAuthenticationType(*m.AuthenticationType)
	if err != nil {
		return models.AuthenticationMethod{}, false
	}
	return models.AuthenticationMethod{
		Type:     t,
		MethodID: *m.AuthenticationMethodID,
		Name:     deref(m.Name),
	}, true
}

func (c *challengeDataJSON) toModel() *models.ChallengeData {
	if c == nil {
		return nil
	}
	data := &models.ChallengeData{ImageURL: c.Image}
	if len(c.Data) > 0 {
		data.AutoStartToken = c.Data[0]
	}
	if data.AutoStartToken == "" && data.ImageURL == "" {
		return nil
	}
	return data
}

func (a accountRefJSON) toModel() models.AccountReference {
	return models.AccountReference{IBAN: a.IBAN, Currency: a.Currency}
}

func accountRefs(refs []accountRefJSON) []models.AccountReference {
	out := make([]models.AccountReference, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.toModel())
	}
	return out
}

package openbanking

import "encoding/json"

// Request bodies

type amountJSON struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type accountRefJSON struct {
	IBAN     string `json:"iban"`
	Currency string `json:"currency,omitempty"`
}

type consentAccessJSON struct {
	Accounts     []accountRefJSON `json:"accounts"`
	Balances     []accountRefJSON `json:"balances"`
	Transactions []accountRefJSON `json:"transactions"`
}

type consentRequestJSON struct {
	Access                   consentAccessJSON `json:"access"`
	RecurringIndicator       bool              `json:"recurringIndicator"`
	ValidUntil               string            `json:"validUntil"`
	FrequencyPerDay          int               `json:"frequencyPerDay"`
	CombinedServiceIndicator bool              `json:"combinedServiceIndicator"`
}

type paymentAccountJSON struct {
	IBAN     string `json:"iban"`
	Currency string `json:"currency"`
}

type paymentRequestJSON struct {
	InstructedAmount                  amountJSON         `json:"instructedAmount"`
	DebtorAccount                     paymentAccountJSON `json:"debtorAccount"`
	CreditorName                      string             `json:"creditorName"`
	CreditorAccount                   paymentAccountJSON `json:"creditorAccount"`
	RemittanceInformationUnstructured string             `json:"remittanceInformationUnstructured"`
}

type basketRequestJSON struct {
	PaymentIDs []string `json:"paymentIds"`
}

type psuDataRequestJSON struct {
	AuthenticationMethodID string `json:"authenticationMethodId"`
}

// Shared response fragments

type linksJSON map[string]json.RawMessage

type tppMessageJSON struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Text     string `json:"text"`
}

type scaMethodJSON struct {
	AuthenticationType     *string `json:"authenticationType"`
	AuthenticationMethodID *string `json:"authenticationMethodId"`
	Name                   *string `json:"name"`
}

func (m *scaMethodJSON) validate() string {
	switch {
	case missing(m.AuthenticationType):
		return "authenticationType"
	case missing(m.AuthenticationMethodID):
		return "authenticationMethodId"
	case missing(m.Name):
		return "name"
	}
	return ""
}

type challengeDataJSON struct {
	Data  []string `json:"data"`
	Image string   `json:"image"`
}

// Token endpoint

type tokenResponseJSON struct {
	AccessToken *string `json:"access_token"`
	ExpiresIn   *int    `json:"expires_in"`
	TokenType   *string `json:"token_type"`
}

func (t *tokenResponseJSON) validate() string {
	switch {
	case missing(t.AccessToken):
		return "access_token"
	case t.ExpiresIn == nil:
		return "expires_in"
	case missing(t.TokenType):
		return "token_type"
	}
	return ""
}

// Consents

type consentCreatedJSON struct {
	ConsentStatus *string           `json:"consentStatus"`
	ConsentID     *string           `json:"consentId"`
	ScaMethods    []json.RawMessage `json:"scaMethods"`
	Links         linksJSON         `json:"_links"`
}

func (c *consentCreatedJSON) validate() string {
	switch {
	case missing(c.ConsentStatus):
		return "consentStatus"
	case missing(c.ConsentID):
		return "consentId"
	case c.ScaMethods == nil:
		return "scaMethods"
	case c.Links == nil:
		return "_links"
	}
	return ""
}

type consentJSON struct {
	ConsentID          *string `json:"consentId"`
	ConsentStatus      *string `json:"consentStatus"`
	ValidUntil         *string `json:"validUntil"`
	LastActionDate     *string `json:"lastActionDate"`
	FrequencyPerDay    *int    `json:"frequencyPerDay"`
	RecurringIndicator *bool   `json:"recurringIndicator"`
	Access             *struct {
		Accounts     []accountRefJSON `json:"accounts"`
		Balances     []accountRefJSON `json:"balances"`
		Transactions []accountRefJSON `json:"transactions"`
	} `json:"access"`
}

func (c *consentJSON) validate() string {
	switch {
	case missing(c.ConsentID):
		return "consentId"
	case missing(c.ConsentStatus):
		return "consentStatus"
	case missing(c.ValidUntil):
		return "validUntil"
	case missing(c.LastActionDate):
		return "lastActionDate"
	case c.FrequencyPerDay == nil:
		return "frequencyPerDay"
	case c.RecurringIndicator == nil:
		return "recurringIndicator"
	case c.Access == nil:
		return "access"
	case c.Access.Accounts == nil:
		return "access.accounts"
	case c.Access.Balances == nil:
		return "access.balances"
	case c.Access.Transactions == nil:
		return "access.transactions"
	}
	return ""
}

type consentStatusJSON struct {
	ConsentStatus *string `json:"consentStatus"`
}

func (c *consentStatusJSON) validate() string {
	if missing(c.ConsentStatus) {
		return "consentStatus"
	}
	return ""
}

// Authorisation sub-resources (shared by consents, payments and baskets)

type authorisationIDsJSON struct {
	AuthorisationIDs []string `json:"authorisationIds"`
}

func (a *authorisationIDsJSON) validate() string {
	if a.AuthorisationIDs == nil {
		return "authorisationIds"
	}
	return ""
}

type authorisationStartedJSON struct {
	AuthorisationID *string           `json:"authorisationId"`
	ScaStatus       *string           `json:"scaStatus"`
	ScaMethods      []json.RawMessage `json:"scaMethods"`
	Links           linksJSON         `json:"_links"`
}

func (a *authorisationStartedJSON) validate() string {
	switch {
	case missing(a.AuthorisationID):
		return "authorisationId"
	case missing(a.ScaStatus):
		return "scaStatus"
	case a.ScaMethods == nil:
		return "scaMethods"
	case a.Links == nil:
		return "_links"
	}
	return ""
}

type psuDataJSON struct {
	ScaStatus       *string            `json:"scaStatus"`
	Links           linksJSON          `json:"_links"`
	ChosenScaMethod json.RawMessage    `json:"chosenScaMethod"`
	PsuMessage      string             `json:"psuMessage"`
	ChallengeData   *challengeDataJSON `json:"challengeData"`
	TppMessages     []tppMessageJSON   `json:"tppMessages"`
}

func (p *psuDataJSON) validate() string {
	switch {
	case missing(p.ScaStatus):
		return "scaStatus"
	case p.Links == nil:
		return "_links"
	}
	return ""
}

type authorisationStatusJSON struct {
	ScaStatus     *string            `json:"scaStatus"`
	ChallengeData *challengeDataJSON `json:"challengeData"`
	TppMessages   []tppMessageJSON   `json:"tppMessages"`
}

func (a *authorisationStatusJSON) validate() string {
	if missing(a.ScaStatus) {
		return "scaStatus"
	}
	return ""
}

// Accounts

type accountsJSON struct {
	Accounts []json.RawMessage `json:"accounts"`
}

func (a *accountsJSON) validate() string {
	if a.Accounts == nil {
		return "accounts"
	}
	return ""
}

type balanceJSON struct {
	BalanceAmount struct {
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	} `json:"balanceAmount"`
	BalanceType         string `json:"balanceType"`
	CreditLimitIncluded *bool  `json:"creditLimitIncluded"`
}

type accountJSON struct {
	ResourceID      string        `json:"resourceId"`
	IBAN            string        `json:"iban"`
	BBAN            string        `json:"bban"`
	Currency        string        `json:"currency"`
	BIC             string        `json:"bic"`
	Name            string        `json:"name"`
	OwnerName       string        `json:"ownerName"`
	Product         string        `json:"product"`
	CashAccountType string        `json:"cashAccountType"`
	Status          string        `json:"status"`
	Usage           string        `json:"usage"`
	Balances        []balanceJSON `json:"balances"`
}

// Payments and baskets

type paymentCreatedJSON struct {
	TransactionStatus *string          `json:"transactionStatus"`
	PaymentID         *string          `json:"paymentId"`
	Links             linksJSON        `json:"_links"`
	PsuMessage        string           `json:"psuMessage"`
	TppMessages       []tppMessageJSON `json:"tppMessages"`
}

func (p *paymentCreatedJSON) validate() string {
	switch {
	case missing(p.TransactionStatus):
		return "transactionStatus"
	case missing(p.PaymentID):
		return "paymentId"
	case p.Links == nil:
		return "_links"
	}
	return ""
}

type basketCreatedJSON struct {
	TransactionStatus *string          `json:"transactionStatus"`
	BasketID          *string          `json:"basketId"`
	Links             linksJSON        `json:"_links"`
	PsuMessage        string           `json:"psuMessage"`
	TppMessages       []tppMessageJSON `json:"tppMessages"`
}

func (b *basketCreatedJSON) validate() string {
	switch {
	case missing(b.TransactionStatus):
		return "transactionStatus"
	case missing(b.BasketID):
		return "basketId"
	case b.Links == nil:
		return "_links"
	}
	return ""
}

// transactionStatusJSON is the status answer of both payments and baskets
type transactionStatusJSON struct {
	TransactionStatus *string          `json:"transactionStatus"`
	TppMessages       []tppMessageJSON `json:"tppMessages"`
}

func (t *transactionStatusJSON) validate() string {
	if missing(t.TransactionStatus) {
		return "transactionStatus"
	}
	return ""
}

// ASPSP directory

type countriesJSON struct {
	Countries []json.RawMessage `json:"countries"`
}

func (c *countriesJSON) validate() string {
	if c.Countries == nil {
		return "countries"
	}
	return ""
}

type countryJSON struct {
	IsoCountryCode *string `json:"isoCountryCode"`
	Name           *string `json:"name"`
}

func (c *countryJSON) validate() string {
	switch {
	case missing(c.IsoCountryCode):
		return "isoCountryCode"
	case missing(c.Name):
		return "name"
	}
	return ""
}

type citiesJSON struct {
	Cities []json.RawMessage `json:"cities"`
}

func (c *citiesJSON) validate() string {
	if c.Cities == nil {
		return "cities"
	}
	return ""
}

type cityJSON struct {
	CityID         *string `json:"cityId"`
	IsoCountryCode *string `json:"isoCountryCode"`
	Name           *string `json:"name"`
}

func (c *cityJSON) validate() string {
	switch {
	case missing(c.CityID):
		return "cityId"
	case missing(c.IsoCountryCode):
		return "isoCountryCode"
	case missing(c.Name):
		return "name"
	}
	return ""
}

type aspspsJSON struct {
	Aspsps []json.RawMessage `json:"aspsps"`
}

func (a *aspspsJSON) validate() string {
	if a.Aspsps == nil {
		return "aspsps"
	}
	return ""
}

type aspspJSON struct {
	BicFi   *string `json:"bicFi"`
	Name    *string `json:"name"`
	LogoURL *string `json:"logoUrl"`
}

func (a *aspspJSON) validate() string {
	switch {
	case missing(a.BicFi):
		return "bicFi"
	case missing(a.Name):
		return "name"
	case missing(a.LogoURL):
		return "logoUrl"
	}
	return ""
}

type aspspDetailsJSON struct {
	aspspJSON
	City                          *string           `json:"city"`
	Country                       *string           `json:"country"`
	PostalCode                    *string           `json:"postalCode"`
	StreetAddress                 *string           `json:"streetAddress"`
	CompanyNumber                 *string           `json:"companyNumber"`
	Phone                         *string           `json:"phone"`
	WebsiteURL                    *string           `json:"websiteUrl"`
	GlobalPaymentProducts         []json.RawMessage `json:"globalPaymentProducts"`
	SupportedAuthorizationMethods []json.RawMessage `json:"supportedAuthorizationMethods"`
	AffiliatedAspsps              []json.RawMessage `json:"affiliatedAspsps"`
}

func (a *aspspDetailsJSON) validate() string {
	if field := a.aspspJSON.validate(); field != "" {
		return field
	}
	switch {
	case missing(a.City):
		return "city"
	case missing(a.Country):
		return "country"
	case missing(a.PostalCode):
		return "postalCode"
	case missing(a.StreetAddress):
		return "streetAddress"
	case missing(a.CompanyNumber):
		return "companyNumber"
	case missing(a.Phone):
		return "phone"
	case missing(a.WebsiteURL):
		return "websiteUrl"
	}
	return ""
}

type authorizationMethodLinkJSON struct {
	Name *string `json:"name"`
	URI  *string `json:"uri"`
}

func (a *authorizationMethodLinkJSON) validate() string {
	switch {
	case missing(a.Name):
		return "name"
	case missing(a.URI):
		return "uri"
	}
	return ""
}

type affiliatedAspspJSON struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

func (a *affiliatedAspspJSON) validate() string {
	switch {
	case missing(a.ID):
		return "id"
	case missing(a.Name):
		return "name"
	}
	return ""
}

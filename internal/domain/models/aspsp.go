package models

// Country is a country covered by the ASPSP directory
type Country struct {
	IsoCode string
	Name    string
}

// City is a city covered by the ASPSP directory
type City struct {
	ID             string
	IsoCountryCode string
	Name           string
}

// ServiceProvider is an account servicing payment service provider (bank)
type ServiceProvider struct {
	BicFi   string
	Name    string
	LogoURL string
}

// ServiceProviderDetails is the full directory entry of a bank
type ServiceProviderDetails struct {
	ServiceProvider
	City                          string
	Country                       string
	PostalCode                    string
	StreetAddress                 string
	CompanyNumber                 string
	Phone                         string
	WebsiteURL                    string
	GlobalPaymentProducts         []string
	SupportedAuthorizationMethods map[string]string // name -> uri, empty when none
	AffiliatedAspsps              map[string]string // id -> name
}

package openbanking

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

const aspspInformationPath = "psd2/aspspinformation/v1/"

// GetCountries lists the countries covered by the directory
func (c *Client) GetCountries(ctx context.Context) ([]models.Country, error) {
	body, err := c.get(ctx, FamilyASPSPInformation, aspspInformationPath+"countries")
	if err != nil {
		return nil, err
	}

	var resp countriesJSON
	if err := decode(body, "countries", "list", &resp); err != nil {
		return nil, err
	}

	decoded := decodeEach[countryJSON](resp.Countries)
	countries := make([]models.Country, 0, len(decoded))
	for _, item := range decoded {
		countries = append(countries, item.toModel())
	}
	return countries, nil
}

// GetCountry returns one country by ISO code
func (c *Client) GetCountry(ctx context.Context, isoCode string) (*models.Country, error) {
	body, err := c.get(ctx, FamilyASPSPInformation, aspspInformationPath+"countries/"+url.PathEscape(strings.ToUpper(isoCode)))
	if err != nil {
		return nil, err
	}

	var resp countryJSON
	if err := decode(body, "country", "get", &resp); err != nil {
		return nil, err
	}
	country := resp.toModel()
	return &country, nil
}

// GetCities lists cities, optionally restricted to one country
func (c *Client) GetCities(ctx context.Context, isoCountryCode string) ([]models.City, error) {
	body, err := c.get(ctx, FamilyASPSPInformation, aspspInformationPath+"cities"+countryFilter(isoCountryCode))
	if err != nil {
		return nil, err
	}

	var resp citiesJSON
	if err := decode(body, "cities", "list", &resp); err != nil {
		return nil, err
	}

	decoded := decodeEach[cityJSON](resp.Cities)
	cities := make([]models.City, 0, len(decoded))
	for _, item := range decoded {
		cities = append(cities, item.toModel())
	}
	return cities, nil
}

// GetCity returns one city by directory id
func (c *Client) GetCity(ctx context.Context, cityID string) (*models.City, error) {
	body, err := c.get(ctx, FamilyASPSPInformation, aspspInformationPath+"cities/"+url.PathEscape(cityID))
	if err != nil {
		return nil, err
	}

	var resp cityJSON
	if err := decode(body, "city", "get", &resp); err != nil {
		return nil, err
	}
	city := resp.toModel()
	return &city, nil
}

// GetServiceProviders lists banks, optionally restricted to one country
func (c *Client) GetServiceProviders(ctx context.Context, isoCountryCode string) ([]models.ServiceProvider, error) {
	body, err := c.get(ctx, FamilyASPSPInformation, aspspInformationPath+"aspsps"+countryFilter(isoCountryCode))
	if err != nil {
		return nil, err
	}

	var resp aspspsJSON
	if err := decode(body, "aspsps", "list", &resp); err != nil {
		return nil, err
	}

	decoded := decodeEach[aspspJSON](resp.Aspsps)
	providers := make([]models.ServiceProvider, 0, len(decoded))
	for _, item := range decoded {
		providers = append(providers, item.toModel())
	}
	return providers, nil
}

// GetServiceProvider returns the full directory entry of a bank
func (c *Client) GetServiceProvider(ctx context.Context, bicFi string) (*models.ServiceProviderDetails, error) {
	body, err := c.get(ctx, FamilyASPSPInformation, aspspInformationPath+"aspsps/"+url.PathEscape(bicFi))
	if err != nil {
		return nil, err
	}

	var resp aspspDetailsJSON
	if err := decode(body, "aspsp", "get", &resp); err != nil {
		return nil, err
	}

	details := &models.ServiceProviderDetails{
		ServiceProvider:               resp.aspspJSON.toModel(),
		City:                          *resp.City,
		Country:                       *resp.Country,
		PostalCode:                    *resp.PostalCode,
		StreetAddress:                 *resp.StreetAddress,
		CompanyNumber:                 *resp.CompanyNumber,
		Phone:                         *resp.Phone,
		WebsiteURL:                    *resp.WebsiteURL,
		GlobalPaymentProducts:         []string{},
		SupportedAuthorizationMethods: map[string]string{},
		AffiliatedAspsps:              map[string]string{},
	}

	for _, raw := range resp.GlobalPaymentProducts {
		var product string
		if json.Unmarshal(raw, &product) == nil {
			details.GlobalPaymentProducts = append(details.GlobalPaymentProducts, product)
		}
	}
	for _, m := range decodeEach[authorizationMethodLinkJSON](resp.SupportedAuthorizationMethods) {
		details.SupportedAuthorizationMethods[*m.Name] = *m.URI
	}
	for _, a := range decodeEach[affiliatedAspspJSON](resp.AffiliatedAspsps) {
		details.AffiliatedAspsps[*a.ID] = *a.Name
	}

	return details, nil
}

func countryFilter(isoCountryCode string) string {
	if isoCountryCode == "" {
		return ""
	}
	return "?isoCountryCodes=" + url.QueryEscape(strings.ToUpper(isoCountryCode))
}

func (c countryJSON) toModel() models.Country {
	return models.Country{IsoCode: *c.IsoCountryCode, Name: *c.Name}
}

func (c cityJSON) toModel() models.City {
	return models.City{ID: *c.CityID, IsoCountryCode: *c.IsoCountryCode, Name: *c.Name}
}

func (a aspspJSON) toModel() models.ServiceProvider {
	return models.ServiceProvider{BicFi: *a.BicFi, Name: *a.Name, LogoURL: *a.LogoURL}
}

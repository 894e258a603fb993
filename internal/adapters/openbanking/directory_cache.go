package openbanking

import (
	"context"
	"strings"
	"time"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// CachedDirectory serves ASPSP directory reads from memory. The directory changes
// rarely and is read on every bank picker render.
type CachedDirectory struct {
	next   ports.DirectoryAPI
	cache  *gocache.Cache
	group  singleflight.Group
	logger ports.Logger
}

var _ ports.DirectoryAPI = (*CachedDirectory)(nil)

// NewCachedDirectory wraps next with a cache whose entries live for ttl
func NewCachedDirectory(next ports.DirectoryAPI, ttl time.Duration, logger ports.Logger) *CachedDirectory {
	return &CachedDirectory{
		next:   next,
		cache:  gocache.New(ttl, time.Minute),
		logger: logger,
	}
}

// cached returns the value under key, loading it once for all concurrent callers on a miss.
// Errors are not cached.
func cached[T any](d *CachedDirectory, key string, load func() (T, error)) (T, error) {
	if v, ok := d.cache.Get(key); ok {
		return v.(T), nil
	}

	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		loaded, err := load()
		if err != nil {
			return nil, err
		}
		d.cache.SetDefault(key, loaded)
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (d *CachedDirectory) GetCountries(ctx context.Context) ([]models.Country, error) {
	return cached(d, "countries", func() ([]models.Country, error) {
		return d.next.GetCountries(ctx)
	})
}

func (d *CachedDirectory) GetCountry(ctx context.Context, isoCode string) (*models.Country, error) {
	return cached(d, "country:"+strings.ToUpper(isoCode), func() (*models.Country, error) {
		return d.next.GetCountry(ctx, isoCode)
	})
}

func (d *CachedDirectory) GetCities(ctx context.Context, isoCountryCode string) ([]models.City, error) {
	return cached(d, "cities:"+strings.ToUpper(isoCountryCode), func() ([]models.City, error) {
		return d.next.GetCities(ctx, isoCountryCode)
	})
}

func (d *CachedDirectory) GetCity(ctx context.Context, cityID string) (*models.City, error) {
	return cached(d, "city:"+cityID, func() (*models.City, error) {
		return d.next.GetCity(ctx, cityID)
	})
}

func (d *CachedDirectory) GetServiceProviders(ctx context.Context, isoCountryCode string) ([]models.ServiceProvider, error) {
	return cached(d, "aspsps:"+strings.ToUpper(isoCountryCode), func() ([]models.ServiceProvider, error) {
		return d.next.GetServiceProviders(ctx, isoCountryCode)
	})
}

func (d *CachedDirectory) GetServiceProvider(ctx context.Context, bicFi string) (*models.ServiceProviderDetails, error) {
	return cached(d, "aspsp:"+strings.ToUpper(bicFi), func() (*models.ServiceProviderDetails, error) {
		return d.next.GetServiceProvider(ctx, bicFi)
	})
}

// Warm refreshes the country list and the provider list of every country.
// Failures are logged; a stale entry stays until it expires.
func (d *CachedDirectory) Warm(ctx context.Context) {
	countries, err := d.next.GetCountries(ctx)
	if err != nil {
		d.logger.Warn("directory warm-up failed", ports.String("stage", "countries"), ports.Err(err))
		return
	}
	d.cache.SetDefault("countries", countries)

	for _, country := range countries {
		if ctx.Err() != nil {
			return
		}
		providers, err := d.next.GetServiceProviders(ctx, country.IsoCode)
		if err != nil {
			d.logger.Warn("directory warm-up failed",
				ports.String("stage", "aspsps"),
				ports.String("country", country.IsoCode),
				ports.Err(err),
			)
			continue
		}
		d.cache.SetDefault("aspsps:"+strings.ToUpper(country.IsoCode), providers)
	}

	d.logger.Info("directory cache warmed", ports.Int("countries", len(countries)))
}

// Flush drops every cached entry
func (d *CachedDirectory) Flush() {
	d.cache.Flush()
}

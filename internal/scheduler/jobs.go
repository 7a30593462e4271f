package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"rumahku/server/internal/district"
)

// Purger removes district lists older than maxAge
type Purger interface {
	PurgeDistricts(maxAge time.Duration) (int64, error)
}

// WarmDistricts refetches the district list of every city and stores it in
// the cache, so visitors selecting a city never wait on the static host.
// A city that fails keeps its previous entry.
func WarmDistricts(fetcher district.Fetcher, cache district.Cache, cities []string, logger *logrus.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var failed int
		for _, city := range cities {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			districts, err := fetcher.Fetch(ctx, city)
			if err != nil {
				failed++
				logger.WithError(err).WithField("city", city).Warn("Failed to warm districts")
				continue
			}
			if districts == nil {
				districts = []string{}
			}
			if err := cache.PutDistricts(city, districts); err != nil {
				return fmt.Errorf("failed to cache districts of %s: %w", city, err)
			}
		}

		if failed == len(cities) && failed > 0 {
			return fmt.Errorf("no district list could be fetched for %d cities", failed)
		}
		return nil
	}
}

// PurgeDistricts drops cached lists older than maxAge
func PurgeDistricts(purger Purger, maxAge time.Duration, logger *logrus.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		purged, err := purger.PurgeDistricts(maxAge)
		if err != nil {
			return err
		}
		if purged > 0 {
			logger.WithField("purged", purged).Info("Purged expired district lists")
		}
		return nil
	}
}

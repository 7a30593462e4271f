package district

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rumahku/server/internal/upstream"
)

// Fetcher loads the district list of one city
type Fetcher interface {
	Fetch(ctx context.Context, city string) ([]string, error)
}

// Cache stores district lists between lookups
type Cache interface {
	GetDistricts(city string, maxAge time.Duration) ([]string, bool, error)
	PutDistricts(city string, districts []string) error
}

// Client reads the static /<city>.json files
type Client struct {
	baseURL string
	http    *upstream.Client
}

func NewClient(baseURL string, http *upstream.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
	}
}

func (c *Client) Fetch(ctx context.Context, city string) ([]string, error) {
	var districts []string
	endpoint := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(city))
	if err := c.http.GetJSON(ctx, endpoint, &districts); err != nil {
		return nil, fmt.Errorf("district lookup for %s: %w", city, err)
	}
	return districts, nil
}

// Resolver keeps the district list in sync with the selected city.
// Only the response to the most recent lookup is applied.
type Resolver struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	logger  *logrus.Logger

	mu        sync.RWMutex
	token     uint64
	city      string
	districts []string
}

func NewResolver(fetcher Fetcher, cache Cache, ttl time.Duration, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{
		fetcher:   fetcher,
		cache:     cache,
		ttl:       ttl,
		logger:    logger,
		districts: []string{},
	}
}

// Resolve looks up the districts of city and returns the list in effect afterwards.
// An empty city keeps the current list and invalidates any pending lookup.
func (r *Resolver) Resolve(ctx context.Context, city string) []string {
	return r.Start(city)(ctx)
}

// Start claims the next lookup token right away and returns the lookup itself,
// so callers can fix the order of lookups before running them concurrently.
func (r *Resolver) Start(city string) func(ctx context.Context) []string {
	r.mu.Lock()
	r.token++
	token := r.token
	r.mu.Unlock()

	return func(ctx context.Context) []string {
		if city == "" {
			return r.Districts()
		}

		districts := r.lookup(ctx, city)

		r.mu.Lock()
		defer r.mu.Unlock()
		if token != r.token {
			r.logger.WithFields(logrus.Fields{
				"city":  city,
				"token": token,
			}).Debug("Dropping stale district lookup")
			return append([]string{}, r.districts...)
		}
		r.city = city
		r.districts = districts
		return append([]string{}, districts...)
	}
}

func (r *Resolver) lookup(ctx context.Context, city string) []string {
	if r.cache != nil {
		cached, ok, err := r.cache.GetDistricts(city, r.ttl)
		if err != nil {
			r.logger.WithError(err).WithField("city", city).Warn("District cache read failed")
		} else if ok {
			return cached
		}
	}

	districts, err := r.fetcher.Fetch(ctx, city)
	if err != nil {
		if !upstream.IsAborted(err) {
			r.logger.WithError(err).WithField("city", city).Error("Failed to load districts")
		}
		return []string{}
	}
	if districts == nil {
		districts = []string{}
	}

	if r.cache != nil {
		if err := r.cache.PutDistricts(city, districts); err != nil {
			r.logger.WithError(err).WithField("city", city).Warn("District cache write failed")
		}
	}
	return districts
}

// Districts returns a copy of the current list
func (r *Resolver) Districts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.districts...)
}

// City returns the city whose districts are currently held
func (r *Resolver) City() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.city
}

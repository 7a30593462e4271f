package locations

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"rumahku/server/internal/models"
	"rumahku/server/internal/upstream"
)

// DefaultLimit caps the number of points requested from the backend
const DefaultLimit = 400

// LoadFailedMessage is shown to the visitor when the map data cannot be loaded
const LoadFailedMessage = "Gagal memuat data peta. Coba lagi."

type Fetcher interface {
	Fetch(ctx context.Context, city string) ([]models.LocationPoint, error)
}

// Client queries the backend location feed
type Client struct {
	baseURL string
	limit   int
	http    *upstream.Client
}

func NewClient(baseURL string, limit int, http *upstream.Client) *Client {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		http:    http,
	}
}

func (c *Client) Fetch(ctx context.Context, city string) ([]models.LocationPoint, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.limit))
	if city != "" {
		params.Set("city", city)
	}

	var points []models.LocationPoint
	if err := c.http.GetJSON(ctx, c.baseURL+"/api/locations?"+params.Encode(), &points); err != nil {
		return nil, fmt.Errorf("failed to load map data: %w", err)
	}
	if len(points) > c.limit {
		points = points[:c.limit]
	}
	return points, nil
}

// State is a snapshot of the feed
type State struct {
	Locations []models.LocationPoint `json:"locations"`
	Loading   bool                   `json:"loading"`
	Error     string                 `json:"error,omitempty"`
}

// Feed holds the locations for the current city filter. Starting a new load
// cancels the previous one, so only the latest request ever reaches the state.
type Feed struct {
	fetcher Fetcher
	logger  *logrus.Logger

	mu     sync.RWMutex
	gen    uint64
	cancel context.CancelFunc
	state  State
}

func NewFeed(fetcher Fetcher, logger *logrus.Logger) *Feed {
	if logger == nil {
		logger = logrus.New()
	}
	return &Feed{
		fetcher: fetcher,
		logger:  logger,
		state:   State{Locations: []models.LocationPoint{}},
	}
}

// Load replaces the locations with those of city. It blocks until the request
// finishes or is superseded and returns the fetch error, if any.
func (f *Feed) Load(parent context.Context, city string) error {
	return f.Start(parent, city)()
}

// Start cancels the previous load and marks the feed as loading right away.
// The returned function performs the request.
func (f *Feed) Start(parent context.Context, city string) func() error {
	ctx, cancel := context.WithCancel(parent)

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	f.cancel = cancel
	f.state.Loading = true
	f.state.Error = ""
	f.mu.Unlock()

	return func() error {
		defer cancel()
		points, err := f.fetcher.Fetch(ctx, city)

		f.mu.Lock()
		defer f.mu.Unlock()

		// Superseded or shut down: leave the state to the newer request
		if gen != f.gen || ctx.Err() != nil {
			return ctx.Err()
		}
		f.cancel = nil
		f.state.Loading = false

		if err != nil {
			f.logger.WithError(err).WithField("city", city).Error("Failed to load map data")
			f.state.Locations = []models.LocationPoint{}
			f.state.Error = LoadFailedMessage
			return err
		}

		if points == nil {
			points = []models.LocationPoint{}
		}
		f.state.Locations = points
		f.logger.WithFields(logrus.Fields{
			"city":   city,
			"points": len(points),
		}).Debug("Loaded map data")
		return nil
	}
}

// Cancel aborts the in-flight load, if any
func (f *Feed) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// State returns a copy of the current feed state
func (f *Feed) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s := f.state
	s.Locations = append([]models.LocationPoint{}, f.state.Locations...)
	return s
}

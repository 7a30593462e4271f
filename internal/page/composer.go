package page

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"rumahku/server/config"
	"rumahku/server/internal/district"
	"rumahku/server/internal/form"
	"rumahku/server/internal/geometry"
	"rumahku/server/internal/locations"
	"rumahku/server/internal/mapview"
	"rumahku/server/internal/models"
	"rumahku/server/internal/upstream"
)

// PredictFailedMessage is shown to the visitor when no prediction could be made
const PredictFailedMessage = "Gagal memprediksi harga. Coba lagi."

type Predictor interface {
	Predict(ctx context.Context, f form.Form) (models.PredictionResult, error)
}

// Deps are the collaborators of one page session
type Deps struct {
	Districts district.Fetcher
	Cache     district.Cache
	CacheTTL  time.Duration
	Locations locations.Fetcher
	Predictor Predictor
}

// Composer owns the state of one visitor's page: the form, the district
// list, the map locations and the last prediction.
type Composer struct {
	logger    *logrus.Logger
	districts *district.Resolver
	feed      *locations.Feed
	predictor Predictor

	ctx    context.Context
	cancel context.CancelFunc

	effectsMu sync.Mutex
	inflight  int
	idle      chan struct{}

	mu           sync.RWMutex
	form         form.Form
	result       models.PredictionResult
	predicting   bool
	predictErr   string
	predictToken uint64
}

// New creates a composer and starts the initial, unfiltered location load
func New(deps Deps, logger *logrus.Logger) *Composer {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Composer{
		logger:    logger,
		districts: district.NewResolver(deps.Districts, deps.Cache, deps.CacheTTL, logger),
		feed:      locations.NewFeed(deps.Locations, logger),
		predictor: deps.Predictor,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.run(c.feed.Start(c.ctx, ""))
	return c
}

// SetField updates one form field. Changing the city refreshes both the
// district list and the map locations.
func (c *Composer) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.form.City
	updated, err := c.form.Set(name, value)
	if err != nil {
		return err
	}
	c.form = updated

	if name == form.City && value != previous {
		// Claim ordering under the lock, run the requests in the background
		resolve := c.districts.Start(value)
		load := c.feed.Start(c.ctx, value)
		c.run(func() error {
			resolve(c.ctx)
			return nil
		})
		c.run(load)
	}
	return nil
}

// SetForm applies every field of f, in form order
func (c *Composer) SetForm(f form.Form) error {
	for _, name := range form.Fields() {
		value, _ := f.Get(name)
		if err := c.SetField(name, value); err != nil {
			return err
		}
	}
	return nil
}

// run executes an effect in the background and tracks it for Settle.
// Effect errors are already recorded in the component state.
func (c *Composer) run(effect func() error) {
	c.effectsMu.Lock()
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.effectsMu.Unlock()

	go func() {
		defer func() {
			c.effectsMu.Lock()
			c.inflight--
			if c.inflight == 0 {
				close(c.idle)
			}
			c.effectsMu.Unlock()
		}()
		effect()
	}()
}

// Submit sends the current form for prediction. The previous result is
// cleared before the request starts and replaced only on success.
func (c *Composer) Submit(ctx context.Context) (models.PredictionResult, error) {
	c.mu.Lock()
	c.predictToken++
	token := c.predictToken
	c.result = models.PredictionResult{}
	c.predictErr = ""
	c.predicting = true
	submitted := c.form
	c.mu.Unlock()

	result, err := c.predictor.Predict(ctx, submitted)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.predictToken {
		// A newer submission owns the result
		return result, err
	}
	c.predicting = false

	if err != nil {
		if !upstream.IsAborted(err) {
			c.logger.WithError(err).WithField("city", submitted.City).Error("Failed to predict price")
			c.predictErr = PredictFailedMessage
		}
		return models.PredictionResult{}, err
	}

	c.result = result
	c.logger.WithFields(logrus.Fields{
		"city":            submitted.City,
		"district":        submitted.District,
		"predicted_price": result.PredictedPrice,
	}).Info("Price predicted")
	return result, nil
}

// Settle waits until every in-flight district lookup and location load has finished
func (c *Composer) Settle(ctx context.Context) error {
	c.effectsMu.Lock()
	if c.inflight == 0 {
		c.effectsMu.Unlock()
		return nil
	}
	idle := c.idle
	c.effectsMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close aborts all in-flight work of the session
func (c *Composer) Close() {
	c.cancel()
	c.feed.Cancel()
}

// View is a consistent snapshot of the page
type View struct {
	Form     form.Form `json:"form"`
	Missing  []string  `json:"missing"`
	Complete bool      `json:"complete"`

	// Districts belong to DistrictsCity, which lags Form.City while a lookup runs
	Districts     []string `json:"districts"`
	DistrictsCity string   `json:"districts_city"`

	Result     models.PredictionResult `json:"result"`
	Predicting bool                    `json:"predicting"`
	PredictErr string                  `json:"predict_error,omitempty"`
	Map        mapview.View            `json:"map"`
	Markers    []mapview.Marker        `json:"markers"`
}

// Snapshot captures the current page state
func (c *Composer) Snapshot() View {
	c.mu.RLock()
	f := c.form
	result := c.result
	predicting := c.predicting
	predictErr := c.predictErr
	c.mu.RUnlock()

	feed := c.feed.State()
	mv := mapview.New(mapview.Input{
		Locations:    feed.Locations,
		Center:       MapCenter(feed.Locations),
		Loading:      feed.Loading,
		Error:        feed.Error,
		SelectedCity: f.City,
	})

	markers := make([]mapview.Marker, 0, mv.Count())
	for m := range mv.Markers() {
		markers = append(markers, m)
	}

	missing := f.Missing()
	if missing == nil {
		missing = []string{}
	}

	return View{
		Form:          f,
		Missing:       missing,
		Complete:      f.Complete(),
		Districts:     c.districts.Districts(),
		DistrictsCity: c.districts.City(),
		Result:        result,
		Predicting:    predicting,
		PredictErr:    predictErr,
		Map:           mv,
		Markers:       markers,
	}
}

// MapCenter is the first location's position, or the fallback centre over Jakarta
func MapCenter(locs []models.LocationPoint) orb.Point {
	return geometry.Center(locs, config.FallbackCenter)
}

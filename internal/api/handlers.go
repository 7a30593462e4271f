package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rumahku/server/config"
	"rumahku/server/internal/form"
	"rumahku/server/internal/locations"
	"rumahku/server/internal/page"
	"rumahku/server/internal/session"
)

const composerKey = "composer"

// Notices shown above the form when a page submission is rejected
const (
	invalidFormNotice     = "Formulir tidak valid. Coba lagi."
	unsupportedCityNotice = "Kota tidak didukung."
	rateLimitedNotice     = "Terlalu banyak permintaan prediksi. Coba lagi sebentar lagi."
)

type Handler struct {
	store         *session.Store
	logger        *logrus.Logger
	limiter       *ipLimiter
	cookieName    string
	settleTimeout time.Duration
	locationLimit int
}

type Options struct {
	CookieName           string
	SettleTimeout        time.Duration
	LocationLimit        int
	PredictRatePerMinute int

	// How often idle per-IP rate limit buckets are dropped
	LimiterSweepInterval time.Duration
}

type FieldUpdate struct {
	Value *string `json:"value" binding:"required"`
}

// pageData is what the page template renders
type pageData struct {
	View          page.View
	Options       config.Options
	LocationLimit int
	Notice        string
}

func NewHandler(store *session.Store, opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.CookieName == "" {
		opts.CookieName = "rumahku_sid"
	}
	if opts.LocationLimit <= 0 {
		opts.LocationLimit = locations.DefaultLimit
	}

	h := &Handler{
		store:         store,
		logger:        logger,
		limiter:       newIPLimiter(opts.PredictRatePerMinute),
		cookieName:    opts.CookieName,
		settleTimeout: opts.SettleTimeout,
		locationLimit: opts.LocationLimit,
	}
	h.limiter.Start(opts.LimiterSweepInterval)
	return h
}

// Stop ends the handler's background sweeper
func (h *Handler) Stop() {
	h.limiter.Stop()
}

// supportedCity accepts an empty city (no filter) or one from the catalogue
func supportedCity(city string) bool {
	return city == "" || config.IsSupportedCity(city)
}

func composerFrom(c *gin.Context) *page.Composer {
	return c.MustGet(composerKey).(*page.Composer)
}

// settle waits for in-flight lookups so the rendered state is complete
func (h *Handler) settle(c *gin.Context, composer *page.Composer) {
	if h.settleTimeout <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.settleTimeout)
	defer cancel()
	if err := composer.Settle(ctx); err != nil {
		h.logger.WithError(err).Debug("Rendering page before lookups finished")
	}
}

func (h *Handler) render(c *gin.Context, status int, composer *page.Composer, notice string) {
	c.HTML(status, "page.html", pageData{
		View:          composer.Snapshot(),
		Options:       config.FormOptions(),
		LocationLimit: h.locationLimit,
		Notice:        notice,
	})
}

// Page renders the form and the map
func (h *Handler) Page(c *gin.Context) {
	composer := composerFrom(c)
	h.settle(c, composer)
	h.render(c, http.StatusOK, composer, "")
}

// SubmitPage handles the urlencoded form. action=refresh only applies the
// fields; anything else also requests a prediction. Rejected submissions
// render the page again with a notice.
func (h *Handler) SubmitPage(c *gin.Context) {
	composer := composerFrom(c)
	if err := c.Request.ParseForm(); err != nil {
		h.logger.WithError(err).Error("Failed to parse form")
		h.render(c, http.StatusBadRequest, composer, invalidFormNotice)
		return
	}

	submitted := form.FromValues(c.Request.PostForm)
	if !supportedCity(submitted.City) {
		h.logger.WithField("city", submitted.City).Warn("Rejected unsupported city")
		h.render(c, http.StatusBadRequest, composer, unsupportedCityNotice)
		return
	}

	if err := composer.SetForm(submitted); err != nil {
		h.logger.WithError(err).Error("Failed to apply form")
		h.render(c, http.StatusBadRequest, composer, invalidFormNotice)
		return
	}

	if c.PostForm("action") != "refresh" {
		if !h.limiter.Allow(c.ClientIP()) {
			h.settle(c, composer)
			h.render(c, http.StatusTooManyRequests, composer, rateLimitedNotice)
			return
		}
		// Failures are part of the rendered state
		composer.Submit(c.Request.Context())
	}

	h.settle(c, composer)
	h.render(c, http.StatusOK, composer, "")
}

// GetSession returns the page state as JSON
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, composerFrom(c).Snapshot())
}

// UpdateField replaces one form field
func (h *Handler) UpdateField(c *gin.Context) {
	field := c.Param("field")
	if !form.IsField(field) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown form field " + field})
		return
	}

	var req FieldUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid field update")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if field == form.City && !supportedCity(*req.Value) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported city " + *req.Value})
		return
	}

	composer := composerFrom(c)
	if err := composer.SetField(field, *req.Value); err != nil {
		h.logger.WithError(err).Error("Failed to update field")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update field"})
		return
	}

	c.JSON(http.StatusOK, composer.Snapshot())
}

// Predict submits the session's form to the prediction backend
func (h *Handler) Predict(c *gin.Context) {
	if !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many prediction requests"})
		return
	}

	composer := composerFrom(c)
	if _, err := composer.Submit(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": page.PredictFailedMessage})
		return
	}

	c.JSON(http.StatusOK, composer.Snapshot())
}

// GetMap returns the session's markers as GeoJSON
func (h *Handler) GetMap(c *gin.Context) {
	view := composerFrom(c).Snapshot()
	c.JSON(http.StatusOK, view.Map.FeatureCollection())
}

// GetOptions returns the fixed dropdown values of the form
func (h *Handler) GetOptions(c *gin.Context) {
	c.JSON(http.StatusOK, config.FormOptions())
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"sessions": h.store.Len(),
	})
}

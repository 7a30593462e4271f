package predictor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rumahku/server/internal/form"
	"rumahku/server/internal/models"
	"rumahku/server/internal/upstream"
)

var ErrEmptyPrediction = errors.New("prediction response has no formatted price")

// Client sends listing forms to the price-prediction backend
type Client struct {
	endpoint string
	http     *upstream.Client
}

func NewClient(baseURL string, http *upstream.Client) *Client {
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/predict",
		http:     http,
	}
}

// Predict posts the whole form and returns the predicted price
func (c *Client) Predict(ctx context.Context, f form.Form) (models.PredictionResult, error) {
	var result models.PredictionResult
	if err := c.http.PostJSON(ctx, c.endpoint, f, &result); err != nil {
		return models.PredictionResult{}, fmt.Errorf("prediction request failed: %w", err)
	}
	if result.IsEmpty() {
		return models.PredictionResult{}, ErrEmptyPrediction
	}
	return result, nil
}

package predictor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rumahku/server/internal/form"
	"rumahku/server/internal/upstream"
)

func newClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(baseURL, upstream.NewClient(upstream.Options{Timeout: 2 * time.Second}, logger))
}

func sampleForm() form.Form {
	return form.Form{
		LandSize:     "120",
		BuildingSize: "90",
		Bedrooms:     "3",
		Bathrooms:    "2",
		BuildingAge:  "5",
		District:     "Cibinong",
		City:         "Bogor",
		PropertyType: "rumah",
		Certificate:  "shm - sertifikat hak milik",
		Furnishing:   "unfurnished",
	}
}

func TestPredict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/predict", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body, 10)
		assert.Equal(t, "Bogor", body["city"])
		assert.Equal(t, "shm - sertifikat hak milik", body["certificate"])

		w.Write([]byte(`{"formatted_price":"Rp 1.500.000.000","predicted_price":1500000000}`))
	}))
	defer server.Close()

	result, err := newClient(server.URL+"/").Predict(context.Background(), sampleForm())
	require.NoError(t, err)
	assert.Equal(t, "Rp 1.500.000.000", result.FormattedPrice)
	assert.Equal(t, float64(1500000000), result.PredictedPrice)
}

func TestPredictFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "Server error", status: http.StatusInternalServerError, body: `{"detail":"boom"}`, wantErr: upstream.ErrUnexpectedStatus},
		{name: "Validation error", status: http.StatusUnprocessableEntity, body: `{"detail":[]}`, wantErr: upstream.ErrUnexpectedStatus},
		{name: "Empty body", status: http.StatusOK, body: `{}`, wantErr: ErrEmptyPrediction},
		{name: "Malformed body", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result, err := newClient(server.URL).Predict(context.Background(), sampleForm())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.True(t, result.IsEmpty())
		})
	}
}

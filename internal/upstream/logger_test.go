package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferedLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(&buf)
	logger.SetLevel(level)
	return logger, &buf
}

func TestRequestLogsRespectLevel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	t.Run("Info level stays quiet", func(t *testing.T) {
		logger, buf := bufferedLogger(logrus.InfoLevel)
		client := NewClient(Options{Timeout: time.Second}, logger)

		var out []string
		require.NoError(t, client.GetJSON(context.Background(), server.URL+"/Bogor.json", &out))
		assert.Empty(t, buf.String())
	})

	t.Run("Debug level logs at debug", func(t *testing.T) {
		logger, buf := bufferedLogger(logrus.DebugLevel)
		client := NewClient(Options{Timeout: time.Second}, logger)

		var out []string
		require.NoError(t, client.GetJSON(context.Background(), server.URL+"/Bogor.json", &out))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.NotEmpty(t, lines)
		for _, line := range lines {
			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(line), &entry))
			assert.Equal(t, "debug", entry["level"])
			assert.Equal(t, "upstream", entry["component"])
		}
	})
}

func TestLeveledLoggerFields(t *testing.T) {
	logger, buf := bufferedLogger(logrus.DebugLevel)
	l := leveledLogger{entry: logrus.NewEntry(logger)}

	l.Warn("retrying request", "attempt", 2, "url")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "retrying request", entry["msg"])
	assert.Equal(t, float64(2), entry["attempt"])
	assert.Equal(t, "(missing)", entry["url"])
}

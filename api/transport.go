package api

import (
	"net/http"
	"time"

	"github.com/etnz/tradesim"
	"go.uber.org/zap"
)

// logTransport logs every round trip at debug level.
type logTransport struct {
	base http.RoundTripper
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	log := tradesim.Logger()
	if err != nil {
		log.Debug("http", zap.String("method", req.Method), zap.String("url", req.URL.Redacted()), zap.Error(err))
		return nil, err
	}
	log.Debug("http",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

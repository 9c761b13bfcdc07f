package infra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crpt-gateway/ratelimit/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "https://ismp.crpt.ru"
	CreateDocumentPath = "/api/v3/lk/documents/create"
)

// HTTPTransport implementa domain.Transport com net/http.
type HTTPTransport struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
	metrics *Metrics
}

type TransportOption func(*HTTPTransport)

func WithBaseURL(u string) TransportOption {
	return func(t *HTTPTransport) { t.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

func WithTransportLogger(l *zap.Logger) TransportOption {
	return func(t *HTTPTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithTransportMetrics(m *Metrics) TransportOption {
	return func(t *HTTPTransport) { t.metrics = m }
}

func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: DefaultBaseURL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) URL() string { return t.baseURL + CreateDocumentPath }

// Send faz um único POST; não há retry.
func (t *HTTPTransport) Send(ctx context.Context, payload []byte, signature string) (domain.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL(), bytes.NewReader(payload))
	if err != nil {
		return domain.Result{}, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Signature", signature)
	req.Header.Set("X-Request-Id", reqID)

	resp, err := t.client.Do(req)
	if err != nil {
		t.metrics.ObserveStatus(0)
		return domain.Result{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.ObserveStatus(0)
		return domain.Result{}, fmt.Errorf("read response: %w", err)
	}
	t.metrics.ObserveStatus(resp.StatusCode)
	t.logger.Debug("registry responded",
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_bytes", len(body)),
	)
	return domain.Result{StatusCode: resp.StatusCode, Body: body}, nil
}

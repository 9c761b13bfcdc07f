package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"crpt-gateway/ratelimit/application"
	"crpt-gateway/ratelimit/domain"
	"crpt-gateway/ratelimit/infra"

	"go.uber.org/zap"
)

// Client é a porta de entrada da biblioteca: cria documentos no serviço de
// registro respeitando no máximo `limit` chamadas por `period`.
//
// Chamadas acima do limite bloqueiam até a próxima janela. Feche com Close
// para parar a goroutine de reset.
type Client struct {
	gate domain.Gate
	svc  application.DocumentService

	closeOnce sync.Once
}

type clientConfig struct {
	baseURL     string
	httpClient  *http.Client
	transport   domain.Transport
	logger      *zap.Logger
	metrics     *infra.Metrics
	stats       domain.StatsStore
	maxInFlight int
	tokenBucket bool
}

type ClientOption func(*clientConfig)

// WithRegistryURL troca o endereço base do serviço de registro.
func WithRegistryURL(u string) ClientOption {
	return func(c *clientConfig) { c.baseURL = u }
}

func WithClientHTTP(hc *http.Client) ClientOption {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithTransport substitui o transporte HTTP padrão (útil em testes).
func WithTransport(t domain.Transport) ClientOption {
	return func(c *clientConfig) { c.transport = t }
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = l }
}

func WithMetrics(m *infra.Metrics) ClientOption {
	return func(c *clientConfig) { c.metrics = m }
}

func WithStats(s domain.StatsStore) ClientOption {
	return func(c *clientConfig) { c.stats = s }
}

// WithMaxInFlight limita quantas chamadas ao registro ficam em voo ao mesmo tempo.
func WithMaxInFlight(n int) ClientOption {
	return func(c *clientConfig) { c.maxInFlight = n }
}

// WithTokenBucket usa infra.TokenGate no lugar da janela fixa.
func WithTokenBucket() ClientOption {
	return func(c *clientConfig) { c.tokenBucket = true }
}

// NewClient valida period/limit (retorna *domain.ConfigError) e liga gate,
// transporte e caso de uso.
func NewClient(period time.Duration, limit int, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	gate, err := NewGate(period, limit, cfg.tokenBucket, cfg.logger, cfg.metrics)
	if err != nil {
		return nil, err
	}

	tr := cfg.transport
	if tr == nil {
		topts := []infra.TransportOption{
			infra.WithHTTPClient(cfg.httpClient),
			infra.WithTransportLogger(cfg.logger),
			infra.WithTransportMetrics(cfg.metrics),
		}
		if cfg.baseURL != "" {
			topts = append(topts, infra.WithBaseURL(cfg.baseURL))
		}
		tr = infra.NewHTTPTransport(topts...)
	}

	svc := application.DocumentService{
		Gate:      gate,
		Transport: tr,
		Stats:     cfg.stats,
		Logger:    cfg.logger,
	}
	if cfg.maxInFlight > 0 {
		svc.InFlight = application.ConcurrencyService{Pool: infra.NewChanPool(cfg.maxInFlight)}
	}

	return &Client{gate: gate, svc: svc}, nil
}

// NewGate escolhe a implementação do gate: janela fixa (padrão) ou token bucket.
func NewGate(period time.Duration, limit int, tokenBucket bool, logger *zap.Logger, m *infra.Metrics) (domain.Gate, error) {
	if tokenBucket {
		g, err := infra.NewTokenGate(period, limit, infra.WithGateLogger(logger), infra.WithGateMetrics(m))
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	g, err := infra.NewWindowGate(period, limit, infra.WithGateLogger(logger), infra.WithGateMetrics(m))
	if err != nil {
		return nil, err
	}
	return g, nil
}

// CreateDocument bloqueia até haver vaga, envia o documento uma vez e
// retorna *domain.StatusError se o registro responder fora de 2xx.
func (c *Client) CreateDocument(ctx context.Context, doc domain.Document, signature string) error {
	_, err := c.svc.Create(ctx, doc, signature)
	return err
}

// Gate expõe o gate usado pelo cliente (para compor com o middleware).
func (c *Client) Gate() domain.Gate { return c.gate }

func (c *Client) Close() {
	c.closeOnce.Do(c.gate.Shutdown)
}

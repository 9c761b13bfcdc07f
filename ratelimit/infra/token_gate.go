package infra

import (
	"context"
	"sync"
	"time"

	"crpt-gateway/ratelimit/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenGate é uma alternativa ao WindowGate baseada em token bucket (x/time/rate).
//
// Libera `limit` chamadas em rajada e repõe os tokens de forma contínua
// (limit/period), em vez de zerar tudo no início de cada janela.
// Também bloqueia em vez de rejeitar. Como não há reset de janela,
// crpt_gate_resets_total não se move neste modo.
type TokenGate struct {
	lim    *rate.Limiter
	limit  int
	period time.Duration

	closed chan struct{}
	once   sync.Once

	logger  *zap.Logger
	metrics *Metrics
}

func NewTokenGate(period time.Duration, limit int, opts ...GateOption) (*TokenGate, error) {
	if limit <= 0 {
		return nil, &domain.ConfigError{Field: "limit", Reason: "must be > 0"}
	}
	if period <= 0 {
		return nil, &domain.ConfigError{Field: "period", Reason: "must be > 0"}
	}
	every := period / time.Duration(limit)
	if every <= 0 {
		every = time.Nanosecond
	}
	o := newGateOptions(opts)
	return &TokenGate{
		lim:     rate.NewLimiter(rate.Every(every), limit),
		limit:   limit,
		period:  period,
		closed:  make(chan struct{}),
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

func (g *TokenGate) Limit() int            { return g.limit }
func (g *TokenGate) Period() time.Duration { return g.period }

func (g *TokenGate) Acquire(ctx context.Context) error {
	select {
	case <-g.closed:
		return domain.ErrGateClosed
	default:
	}

	start := time.Now()
	// Tokens() é só uma leitura para métricas; Wait decide de fato.
	blocked := g.lim.Tokens() < 1
	if blocked {
		g.metrics.blocked()
		g.logger.Debug("rate limit exceeded, waiting for the next token",
			zap.Int("limit", g.limit),
			zap.Duration("period", g.period),
		)
		defer g.metrics.unblocked()
	}

	// Wait não conhece o shutdown: amarra o ctx ao fechamento do gate.
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-g.closed:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := g.lim.Wait(waitCtx); err != nil {
		g.metrics.cancel()
		select {
		case <-g.closed:
			return domain.ErrGateClosed
		default:
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// x/time/rate devolve erro próprio quando o deadline não comporta a espera.
		return context.DeadlineExceeded
	}
	g.metrics.admit(time.Since(start))
	return nil
}

func (g *TokenGate) Shutdown() {
	g.once.Do(func() { close(g.closed) })
}

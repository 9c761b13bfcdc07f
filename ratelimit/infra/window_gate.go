package infra

import (
	"context"
	"sync"
	"time"

	"crpt-gateway/ratelimit/domain"

	"go.uber.org/zap"
)

// WindowGate admite no máximo `limit` chamadas por janela fixa de `period`.
//
// Chamadas acima do limite bloqueiam até a próxima janela (nunca são rejeitadas).
// Cada reset acorda todas as chamadas bloqueadas de uma vez; cada uma volta a
// checar o contador sob o mesmo mutex. A ordem de admissão entre quem esperava
// não é FIFO: depende de qual goroutine o scheduler acorda primeiro.
type WindowGate struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	count   int
	waiting int
	// wake é fechado (e trocado por um novo) a cada reset: broadcast para quem espera.
	wake   chan struct{}
	closed bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	logger  *zap.Logger
	metrics *Metrics
}

// gateOptions é compartilhado por WindowGate e TokenGate.
type gateOptions struct {
	logger  *zap.Logger
	metrics *Metrics
}

type GateOption func(*gateOptions)

func WithGateLogger(l *zap.Logger) GateOption {
	return func(o *gateOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithGateMetrics(m *Metrics) GateOption {
	return func(o *gateOptions) { o.metrics = m }
}

func newGateOptions(opts []GateOption) gateOptions {
	o := gateOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewWindowGate valida a configuração e inicia a goroutine de reset.
// Pare com Shutdown.
func NewWindowGate(period time.Duration, limit int, opts ...GateOption) (*WindowGate, error) {
	if limit <= 0 {
		return nil, &domain.ConfigError{Field: "limit", Reason: "must be > 0"}
	}
	if period <= 0 {
		return nil, &domain.ConfigError{Field: "period", Reason: "must be > 0"}
	}

	o := newGateOptions(opts)
	g := &WindowGate{
		limit:   limit,
		period:  period,
		wake:    make(chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  o.logger,
		metrics: o.metrics,
	}

	t := time.NewTicker(period)
	go func() {
		defer close(g.done)
		defer t.Stop()
		for {
			select {
			case <-g.stop:
				return
			case <-t.C:
				g.resetWindow()
			}
		}
	}()
	return g, nil
}

func (g *WindowGate) Limit() int            { return g.limit }
func (g *WindowGate) Period() time.Duration { return g.period }

// Count retorna o contador da janela corrente.
func (g *WindowGate) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Waiting retorna quantas chamadas estão bloqueadas em Acquire.
func (g *WindowGate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

// Acquire bloqueia até haver vaga na janela corrente e então contabiliza a admissão.
//
// Com context.Background() nunca falha enquanto o gate estiver ativo.
// Se ctx encerrar durante a espera, retorna ctx.Err() sem incrementar o contador.
// Depois de Shutdown retorna domain.ErrGateClosed.
func (g *WindowGate) Acquire(ctx context.Context) error {
	start := time.Now()
	blocked := false

	g.mu.Lock()
	for {
		if g.closed {
			g.leave(blocked)
			g.mu.Unlock()
			if blocked {
				g.metrics.cancel()
			}
			return domain.ErrGateClosed
		}

		if g.count < g.limit {
			g.count++
			g.leave(blocked)
			g.mu.Unlock()
			g.metrics.admit(time.Since(start))
			return nil
		}

		if !blocked {
			blocked = true
			g.waiting++
			g.metrics.blocked()
			g.logger.Debug("rate limit exceeded, waiting until the next window",
				zap.Int("limit", g.limit),
				zap.Duration("period", g.period),
			)
		}

		wake := g.wake
		g.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			g.mu.Lock()
			g.leave(blocked)
			g.mu.Unlock()
			g.metrics.cancel()
			return ctx.Err()
		}

		// acordou: pode ser que outra chamada já tenha ocupado a vaga, então recheca.
		g.mu.Lock()
	}
}

// leave desfaz a marcação de espera; chamar com g.mu travado.
func (g *WindowGate) leave(blocked bool) {
	if !blocked {
		return
	}
	g.waiting--
	g.metrics.unblocked()
}

// resetWindow zera o contador e acorda todas as chamadas bloqueadas.
func (g *WindowGate) resetWindow() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.logger.Debug("resetting request count",
		zap.Int("count", g.count),
		zap.Int("waiting", g.waiting),
	)
	g.count = 0
	close(g.wake)
	g.wake = make(chan struct{})
	g.metrics.reset()
}

// Shutdown para o ticker, espera a goroutine de reset sair e libera quem
// estiver bloqueado com domain.ErrGateClosed. Pode ser chamado várias vezes.
func (g *WindowGate) Shutdown() {
	g.stopOnce.Do(func() {
		close(g.stop)
		<-g.done

		g.mu.Lock()
		g.closed = true
		close(g.wake)
		g.mu.Unlock()

		g.logger.Debug("rate gate stopped")
	})
}

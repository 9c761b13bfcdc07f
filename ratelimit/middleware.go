package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"time"

	"crpt-gateway/ratelimit/application"
	"crpt-gateway/ratelimit/domain"
	"crpt-gateway/ratelimit/infra"

	"go.uber.org/zap"
)

type Options struct {
	Gate   domain.Gate
	Stats  domain.StatsStore
	Logger *zap.Logger

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool

	// MaxInFlight > 0 limita requisições simultâneas; a vaga é obtida antes
	// da admissão no gate e AcquireTimeout limita só essa espera.
	MaxInFlight    int
	AcquireTimeout time.Duration

	// RejectStatus é usado apenas quando a espera é abandonada
	// (cliente desconectou, timeout ou gate desligado).
	RejectStatus        int
	AddRateLimitHeaders bool
}

// Middleware segura a requisição até o gate admitir e então chama o próximo
// handler. Nunca responde 429: excesso vira latência.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	inFlight := application.ConcurrencyService{AcquireTimeout: opts.AcquireTimeout}
	if opts.MaxInFlight > 0 {
		inFlight.Pool = infra.NewChanPool(opts.MaxInFlight)
	}

	return func(next http.Handler) http.Handler {
		if opts.Gate == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				if gi, ok := opts.Gate.(domain.GateInfo); ok {
					w.Header().Set("X-RateLimit-Limit", formatInt(gi.Limit()))
					w.Header().Set("X-RateLimit-Window", formatSeconds(gi.Period()))
				}
			}

			// vaga em voo antes da admissão, para que uma admissão concedida
			// sempre chegue ao próximo handler.
			release, err := inFlight.Acquire(r.Context())
			if err != nil {
				opts.Logger.Warn("no in-flight slot available", zap.String("key", key), zap.Error(err))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			start := time.Now()
			err = opts.Gate.Acquire(r.Context())
			waited := time.Since(start)

			if opts.Stats != nil {
				// best-effort: erro de estatística não derruba a requisição
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     domain.Key(key),
					Outcome: domain.OutcomeFor(err),
					Waited:  waited,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
			}
			if err != nil {
				logAbandoned(opts.Logger, r, key, err)
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func logAbandoned(log *zap.Logger, r *http.Request, key string, err error) {
	fields := []zap.Field{
		zap.String("key", key),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	switch {
	case errors.Is(err, domain.ErrGateClosed):
		log.Warn("rate gate closed", fields...)
	case errors.Is(err, context.Canceled):
		log.Debug("client went away while waiting for admission", fields...)
	default:
		log.Warn("admission wait abandoned", append(fields, zap.Error(err))...)
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crpt-gateway/ratelimit/domain"
)

// ErrNoSlot indica que nenhuma vaga em voo foi obtida antes do timeout/ctx.
var ErrNoSlot = errors.New("no in-flight slot available")

// ConcurrencyService limita quantas chamadas ao registro ficam em voo.
//
// A vaga é pedida ANTES da admissão no gate: assim uma admissão concedida
// sempre chega ao transporte. O valor zero (sem Pool) sempre concede a vaga.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// AcquireTimeout > 0 limita a espera pela vaga; <= 0 espera até o ctx encerrar.
	AcquireTimeout time.Duration
}

// Acquire retorna a função de release, ou um erro que envolve ErrNoSlot e o
// motivo (ctx.Err()). Em erro nenhuma vaga foi ocupada.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if !ok {
		cause := acqCtx.Err()
		if cause == nil {
			cause = context.DeadlineExceeded
		}
		return nil, fmt.Errorf("%w: %w", ErrNoSlot, cause)
	}
	return release, nil
}

package domain

import (
	"context"
	"errors"
	"time"
)

// Outcome é o desfecho de uma tentativa de admissão.
type Outcome string

const (
	OutcomeAdmitted  Outcome = "admitted"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeClosed    Outcome = "closed"
)

// OutcomeFor traduz o erro de Acquire em Outcome.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAdmitted
	case errors.Is(err, ErrGateClosed):
		return OutcomeClosed
	default:
		return OutcomeCancelled
	}
}

type Key string

// StatsEvent representa um evento de admissão no gate.
//
// Method/Path são opcionais (preenchidos pelo middleware HTTP).
// Cuidado com cardinalidade ao persistir Key/Path.
type StatsEvent struct {
	Key     Key
	Outcome Outcome
	// Waited é quanto tempo a chamada ficou bloqueada em Acquire.
	Waited time.Duration

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// Quem registra deve tratar erro como best-effort (não derrubar a chamada).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

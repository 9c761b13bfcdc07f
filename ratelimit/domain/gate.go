package domain

// Camada de domínio do gate de admissão.
//
// Contratos sem dependência de net/http nem de implementações concretas.

import (
	"context"
	"errors"
	"time"
)

// ErrGateClosed é retornado por Acquire depois que o gate foi desligado.
var ErrGateClosed = errors.New("rate gate closed")

// Gate admite no máximo Limit chamadas por janela.
//
// Acquire bloqueia (nunca rejeita) até haver vaga na janela corrente.
// O único motivo para retornar erro é ctx encerrado ou gate desligado;
// nesses casos nenhuma admissão foi contabilizada.
type Gate interface {
	Acquire(ctx context.Context) error
	Shutdown()
}

// GateInfo expõe a configuração do gate (usado em headers/logs).
type GateInfo interface {
	Limit() int
	Period() time.Duration
}

package domain

import "context"

// SlotPool representa um recurso com capacidade finita (ex: chamadas em voo ao registro).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release; chamar mais de uma vez é inofensivo.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

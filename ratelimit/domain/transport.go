package domain

import "context"

// Result é a resposta crua do serviço de registro.
type Result struct {
	StatusCode int
	Body       []byte
}

// OK indica status 2xx.
func (r Result) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Transport envia um documento já serializado ao serviço de registro.
//
// Qualquer status HTTP volta como Result; erro apenas em falha de I/O.
// Quem chama decide como interpretar o status.
type Transport interface {
	Send(ctx context.Context, payload []byte, signature string) (Result, error)
}

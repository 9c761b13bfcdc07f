package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument envolve falhas de validação do documento.
var ErrInvalidDocument = errors.New("invalid document")

// ConfigError indica parâmetro de construção inválido.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// StatusError é retornado quando o registro responde fora da faixa 2xx.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return "failed to create document: " + string(e.Body)
}

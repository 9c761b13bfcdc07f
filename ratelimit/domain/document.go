package domain

import (
	"fmt"
	"strings"
)

// Document segue o corpo JSON esperado por /api/v3/lk/documents/create.
//
// Os nomes dos campos JSON são os do serviço externo (mistura de snake_case e camelCase).
type Document struct {
	Description    Description `json:"description"`
	DocID          string      `json:"doc_id"`
	DocStatus      string      `json:"doc_status"`
	DocType        string      `json:"doc_type"`
	ImportRequest  bool        `json:"importRequest"`
	OwnerINN       string      `json:"owner_inn"`
	ParticipantINN string      `json:"participant_inn"`
	ProducerINN    string      `json:"producer_inn"`
	ProductionDate string      `json:"production_date"`
	ProductionType string      `json:"production_type"`
	Products       []Product   `json:"products"`
	RegDate        string      `json:"reg_date"`
	RegNumber      string      `json:"reg_number"`
}

type Description struct {
	ParticipantINN string `json:"participantInn"`
}

type Product struct {
	CertificateDocument       string `json:"certificate_document"`
	CertificateDocumentDate   string `json:"certificate_document_date"`
	CertificateDocumentNumber string `json:"certificate_document_number"`
	OwnerINN                  string `json:"owner_inn"`
	ProducerINN               string `json:"producer_inn"`
	ProductionDate            string `json:"production_date"`
	TnvedCode                 string `json:"tnved_code"`
	UitCode                   string `json:"uit_code"`
	UituCode                  string `json:"uitu_code"`
}

// Validate checa apenas o mínimo para o registro aceitar o pedido.
func (d Document) Validate() error {
	if strings.TrimSpace(d.DocType) == "" {
		return fmt.Errorf("%w: doc_type is required", ErrInvalidDocument)
	}
	if strings.TrimSpace(d.Description.ParticipantINN) == "" {
		return fmt.Errorf("%w: description.participantInn is required", ErrInvalidDocument)
	}
	return nil
}

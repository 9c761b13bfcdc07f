package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crpt-gateway/ratelimit/domain"

	"go.uber.org/zap"
)

// DocumentService concentra o caso de uso "criar documento no registro":
// valida, serializa, espera admissão no gate e chama o transporte uma única vez.
//
// Ele não sabe nada sobre HTTP; só interpreta o status do Result.
type DocumentService struct {
	Gate      domain.Gate
	Transport domain.Transport
	// InFlight limita chamadas simultâneas ao transporte (opcional). No caminho
	// de documentos a espera pela vaga segue só o ctx de quem chama.
	InFlight ConcurrencyService
	Stats    domain.StatsStore
	Logger   *zap.Logger
}

func (s DocumentService) Create(ctx context.Context, doc domain.Document, signature string) (domain.Result, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("doc_id", doc.DocID), zap.String("doc_type", doc.DocType))

	if s.Gate == nil {
		return domain.Result{}, errors.New("document service: nil gate")
	}
	if s.Transport == nil {
		return domain.Result{}, errors.New("document service: nil transport")
	}
	if err := doc.Validate(); err != nil {
		return domain.Result{}, err
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return domain.Result{}, fmt.Errorf("marshal document: %w", err)
	}

	// vaga em voo antes da admissão: admitido => exatamente um Send.
	release, err := s.InFlight.Acquire(ctx)
	if err != nil {
		return domain.Result{}, err
	}
	defer release()

	start := time.Now()
	err = s.Gate.Acquire(ctx)
	s.record(ctx, log, domain.StatsEvent{
		Outcome: domain.OutcomeFor(err),
		Waited:  time.Since(start),
		At:      time.Now(),
	})
	if err != nil {
		return domain.Result{}, err
	}

	log.Info("attempting to create document")

	res, err := s.Transport.Send(ctx, payload, signature)
	if err != nil {
		log.Error("failed to create document", zap.Error(err))
		return domain.Result{}, fmt.Errorf("create document: %w", err)
	}
	if !res.OK() {
		statusErr := &domain.StatusError{StatusCode: res.StatusCode, Body: res.Body}
		log.Error(statusErr.Error(), zap.Int("status", res.StatusCode))
		return res, statusErr
	}

	log.Info("document created successfully", zap.Int("status", res.StatusCode))
	return res, nil
}

func (s DocumentService) record(ctx context.Context, log *zap.Logger, ev domain.StatsEvent) {
	if s.Stats == nil {
		return
	}
	if err := s.Stats.Record(ctx, ev); err != nil {
		log.Warn("failed to record admission stats", zap.Error(err))
	}
}

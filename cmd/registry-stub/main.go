// registry-stub imita o endpoint de criação de documentos do registro para
// testes locais do gateway.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crpt-gateway/ratelimit/domain"
	"crpt-gateway/ratelimit/infra"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("registry stub listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

type createResponse struct {
	Value string `json:"value"`
}

func newHandler(logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+infra.CreateDocumentPath, func(w http.ResponseWriter, r *http.Request) {
		signature := r.Header.Get("Signature")
		if signature == "" {
			http.Error(w, "missing Signature header", http.StatusUnauthorized)
			return
		}

		var doc domain.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := doc.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id := uuid.NewString()
		logger.Info("document received",
			zap.String("id", id),
			zap.String("doc_type", doc.DocType),
			zap.Int("products", len(doc.Products)),
			zap.String("request_id", r.Header.Get("X-Request-Id")),
		)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(createResponse{Value: id})
	})
	return mux
}

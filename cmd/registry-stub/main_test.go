package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validBody = `{"description":{"participantInn":"7700000000"},"doc_type":"LP_INTRODUCE_GOODS","products":[]}`

func TestHandler_CreatesDocument(t *testing.T) {
	h := newHandler(zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/v3/lk/documents/create", strings.NewReader(validBody))
	r.Header.Set("Signature", "sig")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, err := uuid.Parse(resp.Value)
	assert.NoError(t, err)
}

func TestHandler_Rejects(t *testing.T) {
	cases := []struct {
		name      string
		method    string
		signature string
		body      string
		want      int
	}{
		{"missing signature", http.MethodPost, "", validBody, http.StatusUnauthorized},
		{"bad json", http.MethodPost, "sig", "{", http.StatusBadRequest},
		{"invalid document", http.MethodPost, "sig", `{"doc_type":""}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "sig", "", http.StatusMethodNotAllowed},
	}
	h := newHandler(zap.NewNop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, "/api/v3/lk/documents/create", strings.NewReader(tc.body))
			if tc.signature != "" {
				r.Header.Set("Signature", tc.signature)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

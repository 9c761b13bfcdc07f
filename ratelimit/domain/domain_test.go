package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Validate(t *testing.T) {
	valid := Document{DocType: "LP_INTRODUCE_GOODS", Description: Description{ParticipantINN: "7700000000"}}
	require.NoError(t, valid.Validate())

	noType := valid
	noType.DocType = " "
	err := noType.Validate()
	require.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), "doc_type")

	noInn := valid
	noInn.Description.ParticipantINN = ""
	err = noInn.Validate()
	require.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), "participantInn")
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, OutcomeAdmitted, OutcomeFor(nil))
	assert.Equal(t, OutcomeClosed, OutcomeFor(fmt.Errorf("acquire: %w", ErrGateClosed)))
	assert.Equal(t, OutcomeCancelled, OutcomeFor(context.Canceled))
}

func TestErrors_Messages(t *testing.T) {
	var err error = &StatusError{StatusCode: 500, Body: []byte("Internal Server Error")}
	assert.Equal(t, "failed to create document: Internal Server Error", err.Error())

	err = fmt.Errorf("new gate: %w", &ConfigError{Field: "limit", Reason: "must be > 0"})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "limit", cfgErr.Field)
	assert.Equal(t, "new gate: invalid config limit: must be > 0", err.Error())
}

func TestResult_OK(t *testing.T) {
	assert.True(t, Result{StatusCode: 200}.OK())
	assert.True(t, Result{StatusCode: 201}.OK())
	assert.False(t, Result{StatusCode: 302}.OK())
	assert.False(t, Result{StatusCode: 500}.OK())
}

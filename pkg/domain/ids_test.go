package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaseID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCaseID("")
		require.Error(t, err)
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseCaseID("not-a-uuid")
		require.Error(t, err)
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseCaseID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, CaseID(valid), id)
	})

	t.Run("round trips through String", func(t *testing.T) {
		id := NewCaseID()
		parsed, err := ParseCaseID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}

// Typed IDs prevent cross-type assignment at compile time; this only checks
// the runtime values stay distinct.
func TestTypeDistinction(t *testing.T) {
	caseID := NewCaseID()
	invoiceID := NewInvoiceID()
	assert.NotEqual(t, uuid.UUID(caseID), uuid.UUID(invoiceID))
}

func TestIDJSONForm(t *testing.T) {
	id := NewCaseID()

	raw, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(raw))

	var decoded CaseID
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, id, decoded)
}

func TestIsNil(t *testing.T) {
	assert.True(t, CaseID{}.IsNil())
	assert.False(t, NewCaseID().IsNil())
	assert.True(t, InvoiceID{}.IsNil())
	assert.False(t, NewInvoiceID().IsNil())
}

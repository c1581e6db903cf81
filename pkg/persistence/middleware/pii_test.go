package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "contact|mail"})
	require.NoError(t, err)
	store := mw(underlying)

	ctx := context.Background()
	id := "pii-run"
	state := domain.NewState(id, "weekday-email")
	state.Merge(domain.Delta{
		"recipient_contact": "john@example.com",
		"user_password":     "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"email_sent": true,
		},
		"message": "Welcome email sent",
	})

	require.NoError(t, store.Save(ctx, id, state))

	assert.Equal(t, "secret123", state.Values["user_password"], "in-memory state must not change")
	assert.Equal(t, "john@example.com", state.Values["recipient_contact"])

	stored, err := underlying.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, stored.Values["recipient_contact"])
	assert.Equal(t, middleware.Mask, stored.Values["user_password"])
	assert.Equal(t, "Welcome email sent", stored.Values["message"])

	details := stored.Values["details"].(map[string]any)
	assert.Equal(t, "123 St", details["address"])
	assert.Equal(t, middleware.Mask, details["email_sent"])
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_OrderAndNil(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"contact"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: make([]byte, 32)})
	require.NoError(t, err)

	// Masking runs before sealing, so the decrypted value is already masked.
	store := middleware.Chain(underlying, pii, nil, enc)

	ctx := context.Background()
	state := domain.NewState("c", "g")
	state.Merge(domain.Delta{"contact": "tom@example.com", "n": 1})
	require.NoError(t, store.Save(ctx, "c", state))

	raw, err := underlying.Load(ctx, "c")
	require.NoError(t, err)
	assert.Contains(t, raw.Values, "__encrypted__")

	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Values["contact"])
}

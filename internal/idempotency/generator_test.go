package idempotency

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyDeterministic(t *testing.T) {
	g := NewGenerator()

	key1 := g.GenerateKey(ScopeCheckpoint, map[string]interface{}{
		"client_id":  "client_01",
		"checkpoint": "reminder_72h",
		"expiry":     "2024-06-04T12:00:00Z",
	})
	key2 := g.GenerateKey(ScopeCheckpoint, map[string]interface{}{
		"expiry":     "2024-06-04T12:00:00Z",
		"checkpoint": "reminder_72h",
		"client_id":  "client_01",
	})

	assert.Equal(t, key1, key2)
	assert.True(t, strings.HasPrefix(key1, "checkpoint:"))
}

func TestGenerateKeyVariesWithParams(t *testing.T) {
	g := NewGenerator()
	base := map[string]interface{}{
		"client_id":  "client_01",
		"checkpoint": "reminder_72h",
		"expiry":     "2024-06-04T12:00:00Z",
	}

	key := g.GenerateKey(ScopeCheckpoint, base)

	changed := map[string]interface{}{
		"client_id":  "client_01",
		"checkpoint": "reminder_72h",
		"expiry":     "2024-07-04T12:00:00Z",
	}
	assert.NotEqual(t, key, g.GenerateKey(ScopeCheckpoint, changed))
}

func TestGenerateKeyVariesWithScope(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{"reference": "MM-001"}

	assert.NotEqual(t,
		g.GenerateKey(ScopePayment, params),
		g.GenerateKey(ScopeNotification, params))
}

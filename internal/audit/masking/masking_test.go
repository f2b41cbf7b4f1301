package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Empty(t, MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "****6789", MaskSecret("123456789"))
	// The prefix up to the last underscore is kept for recognizability.
	assert.Equal(t, "sk_live_****wxyz", MaskSecret("sk_live_abcdwxyz"))
}

func TestMaskPayloadRedactsSensitiveKeys(t *testing.T) {
	masked := MaskPayload(map[string]any{
		"order_id":      "12345",
		"server_key":    "SB-Mid-server-abcdwxyz",
		"user_password": "hunter2-secret",
		"nested": map[string]any{
			"signature_key": "deadbeefcafe",
			"amount":        float64(5000000),
		},
	})

	assert.Equal(t, "12345", masked["order_id"])
	assert.Equal(t, "****wxyz", masked["server_key"])
	assert.NotContains(t, masked["user_password"], "hunter2")

	nested, ok := masked["nested"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "****cafe", nested["signature_key"])
	assert.Equal(t, float64(5000000), nested["amount"])
}

func TestMaskPayloadEmpty(t *testing.T) {
	assert.Nil(t, MaskPayload(nil))
	assert.Nil(t, MaskPayload(map[string]any{}))
	assert.Nil(t, MaskPayload(map[string]any{"  ": "x"}))
}

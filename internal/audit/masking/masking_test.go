package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	out := MaskPII(map[string]any{
		"email":    "maria@example.com",
		"whatsapp": "(11) 98765-4321",
		"title":    "Kitchen remodel",
		"password": "hunter22",
		"client": map[string]any{
			"document_number": "123.456.789-09",
			"name":            "ACME",
		},
		" ": "dropped",
	})

	assert.Equal(t, "m****@example.com", out["email"])
	assert.Equal(t, "****4321", out["whatsapp"])
	assert.Equal(t, "Kitchen remodel", out["title"])
	assert.Equal(t, "****", out["password"])
	nested := out["client"].(map[string]any)
	assert.Equal(t, "****8909", nested["document_number"])
	assert.Equal(t, "ACME", nested["name"])
	assert.NotContains(t, out, " ")
}

func TestMaskSecretShortValues(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****", MaskEmail("@"))
}

func TestMaskPIIEmpty(t *testing.T) {
	assert.Nil(t, MaskPII(nil))
}

package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"))

	assert.True(t, Verify("correct horse", encoded))
	assert.False(t, Verify("wrong horse", encoded))
}

func TestHashUsesRandomSalt(t *testing.T) {
	a, err := Hash("same-password")
	require.NoError(t, err)
	b, err := Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!$aGFzaA",
	} {
		assert.False(t, Verify("anything", encoded), encoded)
	}
}

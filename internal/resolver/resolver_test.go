package resolver

import (
	"strings"
	"testing"

	"github.com/parlor-games/session-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_NameIsDeterministic(t *testing.T) {
	a1, err := Resolve("lobby")
	require.NoError(t, err)
	a2, err := Resolve("lobby")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	b, err := Resolve("lobbies")
	require.NoError(t, err)
	assert.NotEqual(t, a1, b)
}

func TestResolve_TokenRoundTrip(t *testing.T) {
	token, err := MintToken()
	require.NoError(t, err)
	require.Len(t, token, 64)

	addr, err := Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, token, addr.String())
}

func TestResolve_NameTooLong(t *testing.T) {
	_, err := Resolve(strings.Repeat("x", 33))
	assert.ErrorIs(t, err, domain.ErrNameTooLong)

	// 32 is still a name
	_, err = Resolve(strings.Repeat("x", 32))
	assert.NoError(t, err)
}

func TestResolve_SixtyFourCharNonHexIsNotAToken(t *testing.T) {
	// right length, wrong alphabet: falls through to the name path and is
	// rejected for length
	_, err := Resolve(strings.Repeat("z", 64))
	assert.ErrorIs(t, err, domain.ErrNameTooLong)
}

func TestMintToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := MintToken()
		require.NoError(t, err)
		require.False(t, seen[token])
		seen[token] = true
	}
}

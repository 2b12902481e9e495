package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PicksVariant(t *testing.T) {
	p, err := New("abc")
	require.NoError(t, err)
	assert.Equal(t, SourceSupplied, p.Source())

	tok, err := p.Token("user-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	p, err = New("")
	require.NoError(t, err)
	assert.Equal(t, SourceSynthetic, p.Source())
}

func TestSynthetic_TokenPerUser(t *testing.T) {
	s, err := NewSynthetic()
	require.NoError(t, err)

	a, err := s.Token("user-1")
	require.NoError(t, err)
	b, err := s.Token("user-2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	claims, err := s.Verify(a)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "chaosq", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestSynthetic_RejectsForeignKey(t *testing.T) {
	a, err := NewSynthetic()
	require.NoError(t, err)
	b, err := NewSynthetic()
	require.NoError(t, err)

	tok, err := a.Token("user-1")
	require.NoError(t, err)

	_, err = b.Verify(tok)
	assert.Error(t, err)
}

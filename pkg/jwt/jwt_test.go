package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateYParse(t *testing.T) {
	tok, err := Generate("s3cr3t", "user-1", "bodeguero", "stock-ledger", 5)
	require.NoError(t, err)

	claims, err := Parse("s3cr3t", tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "bodeguero", claims.Role)
	assert.Equal(t, "stock-ledger", claims.Issuer)
}

func TestParse_Rechazos(t *testing.T) {
	tok, err := Generate("s3cr3t", "user-1", "", "stock-ledger", 5)
	require.NoError(t, err)

	_, err = Parse("otro", tok)
	assert.Error(t, err)

	expired, err := Generate("s3cr3t", "user-1", "", "stock-ledger", -1)
	require.NoError(t, err)
	_, err = Parse("s3cr3t", expired)
	assert.Error(t, err)

	_, err = Generate("", "user-1", "", "x", 5)
	assert.Error(t, err)
}

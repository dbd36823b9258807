package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secreto-de-prueba"

func TestGenerateYParse(t *testing.T) {
	token, err := Generate(testSecret, "user-1", RoleOperator, "stockledger-api", 5)
	require.NoError(t, err)

	userID, role, err := Parse(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, RoleOperator, role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	token, err := Generate(testSecret, "user-1", RoleAdmin, "stockledger-api", 5)
	require.NoError(t, err)
	_, _, err = Parse("otro-secreto", token)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	token, err := Generate(testSecret, "user-1", RoleAdmin, "stockledger-api", -1)
	require.NoError(t, err)
	_, _, err = Parse(testSecret, token)
	assert.Error(t, err)
}

func TestParse_RolDesconocido(t *testing.T) {
	token, err := Generate(testSecret, "user-1", "bodeguero", "stockledger-api", 5)
	require.NoError(t, err)
	_, _, err = Parse(testSecret, token)
	assert.Error(t, err)
}

func TestGenerate_SinSecreto(t *testing.T) {
	_, err := Generate("", "user-1", RoleAdmin, "x", 5)
	assert.Error(t, err)
}

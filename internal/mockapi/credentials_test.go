package mockapi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenFor(t *testing.T) {
	// sha256("admin")[:32]
	require.Equal(t, "8c6976e5b5410415bde908bd4dee15df", TokenFor("admin"))
}

func TestHashPassword_SaltedAndStable(t *testing.T) {
	salt, hash, err := hashPassword("secret", "")
	require.NoError(t, err)
	require.Len(t, salt, 32)

	_, again, err := hashPassword("secret", salt)
	require.NoError(t, err)
	require.Equal(t, hash, again)

	_, other, err := hashPassword("secret", "")
	require.NoError(t, err)
	require.NotEqual(t, hash, other)
}

func TestCredentialStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	s, err := NewCredentialStore(path, "admin", "admin123")
	require.NoError(t, err)
	require.True(t, s.Verify("admin", "admin123"))
	require.False(t, s.Verify("admin", "admin124"))
	require.False(t, s.Verify("root", "admin123"))

	require.NoError(t, s.SetPassword("hunter22"))
	require.NoError(t, s.SetUsername("operator"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk credentials
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	require.Equal(t, "operator", onDisk.Username)
	require.NotContains(t, string(raw), "hunter22")

	reloaded, err := NewCredentialStore(path, "admin", "admin123")
	require.NoError(t, err)
	require.Equal(t, "operator", reloaded.Username())
	require.True(t, reloaded.Verify("operator", "hunter22"))
	require.Equal(t, TokenFor("operator"), reloaded.Token())
}

func TestCredentialStore_IncompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username":"admin"}`), 0o600))

	_, err := NewCredentialStore(path, "admin", "admin123")
	require.Error(t, err)
}

package contacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		cc   string
		want string
	}{
		{"strips formatting", "+91 98765-43210", "91", "919876543210"},
		{"leading zero local number", "09876543210", "91", "919876543210"},
		{"ten digits gets country code", "9876543210", "91", "919876543210"},
		{"already prefixed", "919876543210", "91", "919876543210"},
		{"ten digits starting with code kept", "9187654321", "91", "9187654321"},
		{"short number unchanged", "12345", "91", "12345"},
		{"empty", "", "91", ""},
		{"letters only", "call me", "91", ""},
		{"all zeros", "0000", "91", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.cc))
		})
	}
}

func writeContacts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDedupKeepsFirst(t *testing.T) {
	path := writeContacts(t, "Name,Phone\nAlice,9876543210\nBob,09876543210\nCara,9812345678\n")

	got, err := Load(path, "91")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Both of the first two rows normalize to the same phone; the first
	// row's name wins.
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "919876543210", got[0].Phone)
	assert.Equal(t, "Cara", got[1].Name)
}

func TestLoadDropsShortPhones(t *testing.T) {
	path := writeContacts(t, "Phone\n12345\n9876543210\n\n")

	got, err := Load(path, "91")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "919876543210", got[0].Phone)
}

func TestLoadNameOptional(t *testing.T) {
	path := writeContacts(t, "Phone\n9876543210\n")

	got, err := Load(path, "91")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Name)
}

func TestLoadMissingPhoneColumn(t *testing.T) {
	path := writeContacts(t, "Name,Number\nAlice,9876543210\n")

	_, err := Load(path, "91")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'Phone' column")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), "91")
	require.Error(t, err)
}

func TestLoadPreservesOrder(t *testing.T) {
	path := writeContacts(t, "Name,Phone\nC,9800000003\nA,9800000001\nB,9800000002\n")

	got, err := Load(path, "91")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	s := &Store{Dir: filepath.Join(t.TempDir(), "donormatch")}

	_, err := s.Fetch(OpenAI)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(" OpenAI ", "sk-live-123"))
	require.NoError(t, s.Put(QuickBooks, "qb-token"))

	got, err := s.Fetch(OpenAI)
	require.NoError(t, err)
	require.Equal(t, "sk-live-123", got)

	raw, err := os.ReadFile(filepath.Join(s.Dir, fileName))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "sk-live-123")

	info, err := os.Stat(filepath.Join(s.Dir, fileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	names, err := s.Names()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{OpenAI, QuickBooks}, names)

	require.NoError(t, s.Delete(OpenAI))
	_, err = s.Fetch(OpenAI)
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, s.Put("  ", "x"))
}

package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestEnvStore(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("NAMEWISE_TEST_KEY", "sk-env")
		file := writeEnv(t, "NAMEWISE_TEST_KEY=sk-file\n")

		s := NewEnvStore("NAMEWISE_TEST_KEY", file)
		assert.True(t, s.Has())
		assert.Equal(t, "sk-env", s.Get())
		assert.Equal(t, "NAMEWISE_TEST_KEY", s.Key())
	})

	t.Run("from env file", func(t *testing.T) {
		t.Setenv("NAMEWISE_TEST_KEY", "")
		missing := filepath.Join(t.TempDir(), "nope.env")
		file := writeEnv(t, "# comment\nOTHER=1\nNAMEWISE_TEST_KEY=\"sk-file\"\n")

		s := NewEnvStore("NAMEWISE_TEST_KEY", missing, file)
		assert.True(t, s.Has())
		assert.Equal(t, "sk-file", s.Get())
	})

	t.Run("absent", func(t *testing.T) {
		t.Setenv("NAMEWISE_TEST_KEY", "   ")
		s := NewEnvStore("NAMEWISE_TEST_KEY")
		assert.False(t, s.Has())
		assert.Empty(t, s.Get())
	})

	t.Run("reload picks up changes", func(t *testing.T) {
		t.Setenv("NAMEWISE_TEST_KEY", "")
		s := NewEnvStore("NAMEWISE_TEST_KEY")
		require.False(t, s.Has())

		t.Setenv("NAMEWISE_TEST_KEY", "sk-late")
		s.Reload()
		assert.Equal(t, "sk-late", s.Get())
	})
}

func TestStatic(t *testing.T) {
	assert.False(t, Static("").Has())
	assert.False(t, Static(" ").Has())
	assert.True(t, Static("k").Has())
	assert.Equal(t, "k", Static("k").Get())

	var _ Store = Static("")
	var _ Store = &EnvStore{}
}

func TestDefaultEnvFiles(t *testing.T) {
	files := DefaultEnvFiles()
	require.NotEmpty(t, files)
	assert.Equal(t, ".env", files[0])
}

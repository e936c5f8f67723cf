// Package credentials supplies the API key used by the remote analyzer.
// The batch pipeline only asks whether a key is present.
package credentials

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Store gives access to a single opaque credential.
type Store interface {
	Has() bool
	Get() string
}

// EnvStore reads the credential from an environment variable, falling back
// to .env files. The process environment wins over file values.
type EnvStore struct {
	key   string
	files []string
	value string
}

// DefaultEnvFiles returns the .env locations checked when none are given:
// the working directory, then ~/.config/namewise/.env.
func DefaultEnvFiles() []string {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".config", "namewise", ".env"))
	}
	return files
}

// NewEnvStore looks up key in the environment and then in files, in order.
// Missing files are skipped.
func NewEnvStore(key string, files ...string) *EnvStore {
	s := &EnvStore{key: key, files: files}
	s.Reload()
	return s
}

// Reload re-reads the environment and the .env files
func (s *EnvStore) Reload() {
	s.value = strings.TrimSpace(os.Getenv(s.key))
	if s.value != "" {
		return
	}
	for _, f := range s.files {
		vars, err := godotenv.Read(f)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(vars[s.key]); v != "" {
			s.value = v
			return
		}
	}
}

// Key returns the variable name the store reads
func (s *EnvStore) Key() string {
	return s.key
}

func (s *EnvStore) Has() bool {
	return s.value != ""
}

func (s *EnvStore) Get() string {
	return s.value
}

// Static is a fixed credential, mostly for tests. The zero value has no key.
type Static string

func (s Static) Has() bool {
	return strings.TrimSpace(string(s)) != ""
}

func (s Static) Get() string {
	return string(s)
}

package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Credentials is the cached result of a successful login. The password is
// never stored; losing the cache only costs one interactive login.
type Credentials struct {
	Email     string `json:"email"`
	Token     string `json:"token"`
	AccountID int    `json:"account_id"`
	ClientID  int    `json:"client_id"`
	Tier      string `json:"tier"`
	UniqueID  string `json:"unique_id"` // per-install client ID, stable across logins
}

// Store reads and writes the credential cache file.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load returns the cached credentials, or nil when the file is absent,
// unreadable, or malformed. A broken cache behaves like no cache.
func (s *Store) Load() *Credentials {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debug().Err(err).Str("path", s.Path).Msg("ignoring unreadable credential cache")
		}
		return nil
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		log.Debug().Err(err).Str("path", s.Path).Msg("ignoring malformed credential cache")
		return nil
	}

	return &creds
}

// Save writes the cache with owner-only permissions, creating the parent
// directory when needed. An existing file is overwritten.
func (s *Store) Save(creds *Credentials) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.Path, data, 0600)
}

// NewUniqueID generates the per-install client ID sent at login. It is
// kept in the cache so the cloud keeps trusting this install across
// re-logins instead of demanding a new PIN every time.
func NewUniqueID() string {
	return uuid.NewString()
}

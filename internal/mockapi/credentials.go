package mockapi

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	saltBytes        = 16
)

// credentials is the on-disk shape of the single account.
type credentials struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Salt         string `json:"salt"`
}

// CredentialStore holds the one account the backend knows about. When a
// path is set, changes are written back to it.
type CredentialStore struct {
	mu   sync.RWMutex
	path string
	c    credentials
}

// NewCredentialStore loads path, or seeds the store with the given default
// account when path is empty or does not exist yet.
func NewCredentialStore(path, defaultUser, defaultPassword string) (*CredentialStore, error) {
	s := &CredentialStore{path: path}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &s.c); err != nil {
				return nil, fmt.Errorf("decoding credentials %s: %w", path, err)
			}
			if s.c.Username == "" || s.c.PasswordHash == "" || s.c.Salt == "" {
				return nil, fmt.Errorf("credentials %s: incomplete record", path)
			}
			return s, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("reading credentials: %w", err)
		}
	}

	salt, hash, err := hashPassword(defaultPassword, "")
	if err != nil {
		return nil, err
	}
	s.c = credentials{Username: defaultUser, PasswordHash: hash, Salt: salt}
	return s, nil
}

// hashPassword derives a PBKDF2-HMAC-SHA256 hash. An empty salt picks a new one.
func hashPassword(password, salt string) (string, string, error) {
	if salt == "" {
		b := make([]byte, saltBytes)
		if _, err := rand.Read(b); err != nil {
			return "", "", fmt.Errorf("generating salt: %w", err)
		}
		salt = hex.EncodeToString(b)
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
	return salt, hex.EncodeToString(key), nil
}

// TokenFor is the session token the backend issues for username: the first
// 32 hex characters of its SHA-256.
func TokenFor(username string) string {
	sum := sha256.Sum256([]byte(username))
	return hex.EncodeToString(sum[:])[:32]
}

func (s *CredentialStore) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Username
}

// Token returns the token valid for the current username.
func (s *CredentialStore) Token() string {
	return TokenFor(s.Username())
}

// CheckPassword compares password against the stored hash.
func (s *CredentialStore) CheckPassword(password string) bool {
	s.mu.RLock()
	salt, want := s.c.Salt, s.c.PasswordHash
	s.mu.RUnlock()

	_, got, err := hashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// Verify checks a username/password pair.
func (s *CredentialStore) Verify(username, password string) bool {
	if username != s.Username() {
		return false
	}
	return s.CheckPassword(password)
}

func (s *CredentialStore) SetPassword(password string) error {
	salt, hash, err := hashPassword(password, "")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.c
	s.c.PasswordHash, s.c.Salt = hash, salt
	if err := s.save(); err != nil {
		s.c = prev
		return err
	}
	return nil
}

func (s *CredentialStore) SetUsername(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.c
	s.c.Username = username
	if err := s.save(); err != nil {
		s.c = prev
		return err
	}
	return nil
}

// save must be called with mu held.
func (s *CredentialStore) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/felixgeelhaar/cloudstudy/internal/errors"
)

const (
	fileFormatVersion = 1

	kdfIterations = 100000
	keyLength     = 32
	saltLength    = 16
)

// entry is one stored value.
type entry struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// document is the on-disk layout.
type document struct {
	Version   int              `json:"version"`
	Encrypted bool             `json:"encrypted"`
	Salt      string           `json:"salt,omitempty"`
	Entries   map[string]entry `json:"entries"`
}

// FileStore keeps the token in a JSON file with 0600 permissions. With a
// passphrase, values are sealed with AES-GCM under a PBKDF2 key derived from
// the passphrase and a random per-file salt.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase string
	now        func() time.Time
}

// NewFileStore creates a store at path. An empty passphrase stores the token
// in plain text.
func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{
		path:       path,
		passphrase: passphrase,
		now:        time.Now,
	}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Encrypted reports whether new writes are encrypted.
func (s *FileStore) Encrypted() bool {
	return s.passphrase != ""
}

func (s *FileStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	if s.passphrase != "" && (!doc.Encrypted || doc.Salt == "") {
		// Entries written in plain text are dropped when switching to
		// encrypted storage; only the token is ever kept.
		salt := make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return apperrors.NewSessionError(apperrors.ErrCodeSessionWriteFailed, s.path, err)
		}
		doc = &document{
			Encrypted: true,
			Salt:      base64.StdEncoding.EncodeToString(salt),
			Entries:   make(map[string]entry),
		}
	}
	if s.passphrase == "" && doc.Encrypted {
		doc = &document{Entries: make(map[string]entry)}
	}

	value := token
	if doc.Encrypted {
		key, err := s.key(doc)
		if err != nil {
			return err
		}
		value, err = encrypt(key, token)
		if err != nil {
			return apperrors.NewSessionError(apperrors.ErrCodeSessionWriteFailed, s.path, err)
		}
	}

	doc.Entries[TokenKey] = entry{Value: value, UpdatedAt: s.now().UTC()}
	return s.write(doc)
}

func (s *FileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", err
	}

	e, ok := doc.Entries[TokenKey]
	if !ok || e.Value == "" {
		return "", ErrNoToken
	}
	if !doc.Encrypted {
		return e.Value, nil
	}

	if s.passphrase == "" {
		return "", apperrors.NewSessionError(apperrors.ErrCodeSessionDecrypt, s.path,
			errors.New("session file is encrypted and no passphrase is set"))
	}

	key, err := s.key(doc)
	if err != nil {
		return "", err
	}
	token, err := decrypt(key, e.Value)
	if err != nil {
		return "", apperrors.NewSessionError(apperrors.ErrCodeSessionDecrypt, s.path, err)
	}
	return token, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		// An unreadable file cannot hold a usable token anymore.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeSessionMalformed {
			return s.remove()
		}
		return err
	}

	if _, ok := doc.Entries[TokenKey]; !ok {
		return nil
	}
	delete(doc.Entries, TokenKey)

	if len(doc.Entries) == 0 {
		return s.remove()
	}
	return s.write(doc)
}

// UpdatedAt returns when the token was last saved.
func (s *FileStore) UpdatedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return time.Time{}, false
	}
	e, ok := doc.Entries[TokenKey]
	return e.UpdatedAt, ok
}

// read loads the document. A missing file is an empty document.
func (s *FileStore) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{Entries: make(map[string]entry)}, nil
	}
	if err != nil {
		return nil, apperrors.NewSessionError(apperrors.ErrCodeSessionReadFailed, s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewSessionError(apperrors.ErrCodeSessionMalformed, s.path, err)
	}
	if doc.Version > fileFormatVersion {
		return nil, apperrors.NewSessionError(apperrors.ErrCodeSessionMalformed, s.path,
			fmt.Errorf("unsupported format version %d", doc.Version))
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]entry)
	}
	return &doc, nil
}

func (s *FileStore) write(doc *document) error {
	doc.Version = fileFormatVersion

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return apperrors.NewSessionError(apperrors.ErrCodeSessionWriteFailed, s.path, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.NewSessionError(apperrors.ErrCodeSessionWriteFailed, s.path, err)
	}

	if err := writeAtomic(s.path, data); err != nil {
		return apperrors.NewSessionError(apperrors.ErrCodeSessionWriteFailed, s.path, err)
	}
	return nil
}

// writeAtomic writes data to a 0600 temp file beside path and renames it into
// place, so readers see either the old document or the new one.
func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewSessionError(apperrors.ErrCodeSessionWriteFailed, s.path, err)
	}
	return nil
}

func (s *FileStore) key(doc *document) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(doc.Salt)
	if err != nil || len(salt) == 0 {
		return nil, apperrors.NewSessionError(apperrors.ErrCodeSessionMalformed, s.path,
			errors.New("invalid salt"))
	}
	return pbkdf2.Key([]byte(s.passphrase), salt, kdfIterations, keyLength, sha256.New), nil
}

// encrypt seals plaintext with AES-GCM. The nonce is prepended.
func encrypt(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func decrypt(key []byte, ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

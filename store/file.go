package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	fileVersion = 1
	saltSize    = 16
	nonceSize   = 24
	keySize     = 32
)

var (
	ErrEncrypted = errors.New("credential file is encrypted, a passphrase is required")
	ErrDecrypt   = errors.New("credential file could not be decrypted")
)

var _ Store = (*File)(nil)

// File keeps all credentials in one JSON document. When a passphrase is set the
// entries are sealed with secretbox under an argon2id key derived from it.
type File struct {
	path       string
	passphrase string
	logger     zerolog.Logger
	lock       sync.Mutex

	salt []byte
	key  *[keySize]byte
}

type fileDocument struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries,omitempty"`
	Salt    []byte            `json:"salt,omitempty"`
	Sealed  []byte            `json:"sealed,omitempty"` // nonce followed by the secretbox of the entries JSON
}

type FileOption func(*File)

func WithPassphrase(passphrase string) FileOption {
	return func(f *File) {
		f.passphrase = passphrase
	}
}

func WithFileLogger(logger zerolog.Logger) FileOption {
	return func(f *File) {
		f.logger = logger
	}
}

func NewFile(path string, options ...FileOption) *File {
	f := &File{
		path:   path,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Get(_ context.Context, key string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := entries[key]
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrNotFound, "key %q", key)
	}
	return v, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	entries[key] = value
	return f.save(entries)
}

func (f *File) Remove(_ context.Context, key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return f.save(entries)
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read credential file")
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode credential file")
	}

	if doc.Sealed == nil {
		if doc.Entries == nil {
			doc.Entries = map[string]string{}
		}
		return doc.Entries, nil
	}

	if f.passphrase == "" {
		return nil, ErrEncrypted
	}
	return f.open(doc)
}

func (f *File) open(doc fileDocument) (map[string]string, error) {
	if len(doc.Salt) != saltSize || len(doc.Sealed) < nonceSize {
		return nil, ErrDecrypt
	}
	key := f.deriveKey(doc.Salt)

	var nonce [nonceSize]byte
	copy(nonce[:], doc.Sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, doc.Sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrDecrypt
	}

	entries := map[string]string{}
	if err := json.Unmarshal(plain, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to decode sealed credentials")
	}
	return entries, nil
}

func (f *File) save(entries map[string]string) error {
	doc := fileDocument{Version: fileVersion}
	if f.passphrase == "" {
		doc.Entries = entries
	} else {
		sealed, err := f.seal(entries)
		if err != nil {
			return err
		}
		doc.Salt = f.salt
		doc.Sealed = sealed
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode credential file")
	}
	return writeAtomic(f.path, data)
}

func (f *File) seal(entries map[string]string) ([]byte, error) {
	plain, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode credentials")
	}

	if f.salt == nil {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, errors.Wrap(err, "failed to generate salt")
		}
		f.salt = salt
	}
	key := f.deriveKey(f.salt)

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}
	return secretbox.Seal(nonce[:], plain, &nonce, key), nil
}

// deriveKey caches the key for the current salt
func (f *File) deriveKey(salt []byte) *[keySize]byte {
	if f.key != nil && string(f.salt) == string(salt) {
		return f.key
	}
	derived := argon2.IDKey([]byte(f.passphrase), salt, 1, 64*1024, 4, keySize)
	var key [keySize]byte
	copy(key[:], derived)
	f.salt = append([]byte(nil), salt...)
	f.key = &key
	f.logger.Debug().Str("path", f.path).Msg("derived credential file key")
	return f.key
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "failed to create credential directory")
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to set credential file mode")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write credential file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to sync credential file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close credential file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "failed to replace credential file")
	}
	return nil
}

package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/dmitrijs2005/securebank/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrKeyExists is returned by Create when the alias already holds a key.
var ErrKeyExists = errors.New("key already exists")

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Keystore holds symmetric keys under aliases. Raw key material never
// leaves a Keystore: callers only receive a ready AEAD.
type Keystore interface {
	Exists(alias string) (bool, error)
	Create(alias string) error
	AEAD(alias string) (cipher.AEAD, error)
}

// DeriveKey stretches a secret into a 32-byte key with Argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeyLength)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// wrappedKey is the on-disk form of a data key.
type wrappedKey struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Wrapped []byte `json:"wrapped"`
}

// FileKeystore keeps each data key in <dir>/<alias>.key, wrapped with
// AES-GCM under a key-encryption key derived from a device secret.
// The alias is bound to the wrapped key as additional data.
type FileKeystore struct {
	dir    string
	secret []byte

	mu    sync.Mutex
	cache map[string]cipher.AEAD
}

func NewFileKeystore(dir string, secret []byte) (*FileKeystore, error) {
	if len(secret) == 0 {
		return nil, errors.New("keystore secret must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &FileKeystore{dir: dir, secret: secret, cache: make(map[string]cipher.AEAD)}, nil
}

func (k *FileKeystore) path(alias string) (string, error) {
	if !aliasPattern.MatchString(alias) {
		return "", fmt.Errorf("invalid key alias %q", alias)
	}
	return filepath.Join(k.dir, alias+".key"), nil
}

func (k *FileKeystore) Exists(alias string) (bool, error) {
	p, err := k.path(alias)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (k *FileKeystore) Create(alias string) error {
	p, err := k.path(alias)
	if err != nil {
		return err
	}

	key := common.GenerateRandByteArray(KeyLength)
	defer common.WipeByteArray(key)

	salt := common.GenerateRandByteArray(16)
	kek := DeriveKey(k.secret, salt)
	defer common.WipeByteArray(kek)

	gcm, err := newGCM(kek)
	if err != nil {
		return err
	}
	nonce := common.GenerateRandByteArray(gcm.NonceSize())
	wk := wrappedKey{
		Version: 1,
		Salt:    salt,
		Nonce:   nonce,
		Wrapped: gcm.Seal(nil, nonce, key, []byte(alias)),
	}
	data, err := json.Marshal(wk)
	if err != nil {
		return err
	}

	// O_EXCL keeps an existing key from ever being replaced.
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return ErrKeyExists
	}
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	return f.Close()
}

func (k *FileKeystore) AEAD(alias string) (cipher.AEAD, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if aead, ok := k.cache[alias]; ok {
		return aead, nil
	}

	p, err := k.path(alias)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}

	var wk wrappedKey
	if err := json.Unmarshal(data, &wk); err != nil {
		return nil, fmt.Errorf("%w: corrupt key file", common.ErrKeyUnavailable)
	}

	kek := DeriveKey(k.secret, wk.Salt)
	defer common.WipeByteArray(kek)
	gcm, err := newGCM(kek)
	if err != nil || len(wk.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: corrupt key file", common.ErrKeyUnavailable)
	}
	key, err := gcm.Open(nil, wk.Nonce, wk.Wrapped, []byte(alias))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot unwrap key", common.ErrKeyUnavailable)
	}
	defer common.WipeByteArray(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
	k.cache[alias] = aead
	return aead, nil
}

// MemoryKeystore keeps keys in process memory. Useful for tests and
// ephemeral sessions.
type MemoryKeystore struct {
	mu   sync.Mutex
	keys map[string]cipher.AEAD
}

func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{keys: make(map[string]cipher.AEAD)}
}

func (m *MemoryKeystore) Exists(alias string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[alias]
	return ok, nil
}

func (m *MemoryKeystore) Create(alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[alias]; ok {
		return ErrKeyExists
	}
	key := common.GenerateRandByteArray(KeyLength)
	defer common.WipeByteArray(key)
	aead, err := newGCM(key)
	if err != nil {
		return err
	}
	m.keys[alias] = aead
	return nil
}

func (m *MemoryKeystore) AEAD(alias string) (cipher.AEAD, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	aead, ok := m.keys[alias]
	if !ok {
		return nil, fmt.Errorf("%w: no key under alias %q", common.ErrKeyUnavailable, alias)
	}
	return aead, nil
}

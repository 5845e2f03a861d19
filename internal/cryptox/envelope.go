// Package cryptox implements the authenticated-encryption envelope that
// protects sensitive fields at rest, together with the keystores that hold
// its key.
package cryptox

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securebank/internal/common"
)

const (
	KeyLength   = 32 // AES-256
	NonceLength = 12 // 96-bit GCM nonce
	TagLength   = 16

	// CurrentKeyVersion tags every blob sealed by this build.
	CurrentKeyVersion byte = 1

	formatV1 byte = 1
)

// EncryptedBlob is the result of one Seal call.
type EncryptedBlob struct {
	Ciphertext []byte
	Nonce      []byte
}

// Envelope seals and opens byte strings with AES-256-GCM using a key held
// by a Keystore under a fixed alias.
type Envelope struct {
	ks         Keystore
	alias      string
	keyVersion byte
}

// NewEnvelope binds an Envelope to alias, generating the key the first time
// the alias is seen. An alias that exists but cannot be read is reported as
// ErrKeyUnavailable and is never regenerated.
func NewEnvelope(ks Keystore, alias string) (*Envelope, error) {
	ok, err := ks.Exists(alias)
	if err != nil {
		return nil, common.CryptoError("keystore", fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err))
	}
	if !ok {
		if err := ks.Create(alias); err != nil && !errors.Is(err, ErrKeyExists) {
			return nil, common.CryptoError("keystore", fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err))
		}
	}
	e := &Envelope{ks: ks, alias: alias, keyVersion: CurrentKeyVersion}
	if _, err := e.aead(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Envelope) aead() (cipher.AEAD, error) {
	a, err := e.ks.AEAD(e.alias)
	if err != nil {
		if !errors.Is(err, common.ErrKeyUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
		}
		return nil, common.CryptoError("keystore", err)
	}
	return a, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (e *Envelope) Seal(plaintext []byte) (EncryptedBlob, error) {
	a, err := e.aead()
	if err != nil {
		return EncryptedBlob{}, err
	}
	nonce := common.GenerateRandByteArray(NonceLength)
	return EncryptedBlob{
		Ciphertext: a.Seal(nil, nonce, plaintext, nil),
		Nonce:      nonce,
	}, nil
}

// Open authenticates and decrypts b. Any modification of the ciphertext,
// tag or nonce yields ErrTamperedOrWrongKey.
func (e *Envelope) Open(b EncryptedBlob) ([]byte, error) {
	a, err := e.aead()
	if err != nil {
		return nil, err
	}
	if len(b.Nonce) != NonceLength || len(b.Ciphertext) < TagLength {
		return nil, common.CryptoError("open", common.ErrTamperedOrWrongKey)
	}
	plaintext, err := a.Open(nil, b.Nonce, b.Ciphertext, nil)
	if err != nil {
		return nil, common.CryptoError("open", common.ErrTamperedOrWrongKey)
	}
	return plaintext, nil
}

// SealString seals s and returns the encoded blob.
func (e *Envelope) SealString(s string) ([]byte, error) {
	b, err := e.Seal([]byte(s))
	if err != nil {
		return nil, err
	}
	return Encode(b, e.keyVersion), nil
}

// OpenString decodes and opens data produced by SealString. A blob tagged
// with another key version is rejected.
func (e *Envelope) OpenString(data []byte) (string, error) {
	b, version, err := Decode(data)
	if err != nil {
		return "", common.CryptoError("open", err)
	}
	if version != e.keyVersion {
		return "", common.CryptoError("open", fmt.Errorf("%w: key version %d", common.ErrTamperedOrWrongKey, version))
	}
	plaintext, err := e.Open(b)
	if err != nil {
		return "", err
	}
	s := string(plaintext)
	common.WipeByteArray(plaintext)
	return s, nil
}

// SelfCheck seals and reopens a probe value.
func (e *Envelope) SelfCheck() error {
	probe := common.GenerateRandByteArray(32)
	b, err := e.Seal(probe)
	if err != nil {
		return err
	}
	out, err := e.Open(b)
	if err != nil {
		return err
	}
	if !bytes.Equal(out, probe) {
		return common.CryptoError("selfcheck", common.ErrTamperedOrWrongKey)
	}
	return nil
}

// Encode lays out a blob as
//
//	format(1) | keyVersion(1) | uvarint(len(ciphertext)) | ciphertext | nonce(12)
func Encode(b EncryptedBlob, keyVersion byte) []byte {
	out := make([]byte, 0, 2+binary.MaxVarintLen64+len(b.Ciphertext)+len(b.Nonce))
	out = append(out, formatV1, keyVersion)
	out = binary.AppendUvarint(out, uint64(len(b.Ciphertext)))
	out = append(out, b.Ciphertext...)
	out = append(out, b.Nonce...)
	return out
}

// Decode parses the output of Encode. Malformed input is reported as
// ErrTamperedOrWrongKey.
func Decode(data []byte) (EncryptedBlob, byte, error) {
	if len(data) < 3 || data[0] != formatV1 {
		return EncryptedBlob{}, 0, common.ErrTamperedOrWrongKey
	}
	version := data[1]
	n, k := binary.Uvarint(data[2:])
	if k <= 0 {
		return EncryptedBlob{}, 0, common.ErrTamperedOrWrongKey
	}
	rest := data[2+k:]
	if n > uint64(len(rest)) || uint64(len(rest))-n != NonceLength {
		return EncryptedBlob{}, 0, common.ErrTamperedOrWrongKey
	}
	return EncryptedBlob{
		Ciphertext: bytes.Clone(rest[:n]),
		Nonce:      bytes.Clone(rest[n:]),
	}, version, nil
}

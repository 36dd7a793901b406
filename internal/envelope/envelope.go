package envelope

import (
	"crypto/rand"
	"fmt"

	kerrors "github.com/kestrel-run/kestrel/internal/errors"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the size of every symmetric key in the vault.
	KeySize = chacha20poly1305.KeySize

	// NonceSize is the size of the random nonce drawn for each seal.
	NonceSize = chacha20poly1305.NonceSize

	// TagSize is the size of the authentication tag stored next to each ciphertext.
	TagSize = chacha20poly1305.Overhead
)

// Associated data bound into every seal. A blob sealed for one slot fails
// authentication when opened as another.
const (
	purposeMasterKey  = "kestrel/master-key"
	purposeSession    = "kestrel/session"
	purposeProjectKey = "kestrel/project-key"
	purposeDataKey    = "kestrel/data-key"
	purposeValue      = "kestrel/value"
)

// Sealed is the persisted form of one AEAD operation.
type Sealed struct {
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

type key [KeySize]byte

func randomKey() (key, error) {
	var k key
	if _, err := rand.Read(k[:]); err != nil {
		return k, fmt.Errorf("generating key: %w", err)
	}
	return k, nil
}

func (k *key) seal(purpose string, plaintext []byte) (Sealed, error) {
	aead, err := chacha20poly1305.New(k[:])
	if err != nil {
		return Sealed{}, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, fmt.Errorf("generating nonce: %w", err)
	}

	out := aead.Seal(nil, nonce, plaintext, []byte(purpose))
	split := len(out) - TagSize
	return Sealed{
		Nonce:      nonce,
		Tag:        out[split:],
		Ciphertext: out[:split],
	}, nil
}

func (k *key) open(purpose string, s Sealed) ([]byte, error) {
	if len(s.Nonce) != NonceSize || len(s.Tag) != TagSize {
		return nil, kerrors.ErrAuthFailed
	}

	aead, err := chacha20poly1305.New(k[:])
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(s.Ciphertext)+TagSize)
	buf = append(buf, s.Ciphertext...)
	buf = append(buf, s.Tag...)

	plaintext, err := aead.Open(nil, s.Nonce, buf, []byte(purpose))
	if err != nil {
		return nil, kerrors.ErrAuthFailed
	}
	return plaintext, nil
}

func (k *key) wrap(purpose string, inner *key) (Sealed, error) {
	return k.seal(purpose, inner[:])
}

func (k *key) unwrap(purpose string, s Sealed) (key, error) {
	var out key
	plaintext, err := k.open(purpose, s)
	if err != nil {
		return out, err
	}
	defer zero(plaintext)

	if len(plaintext) != KeySize {
		return out, kerrors.ErrAuthFailed
	}
	copy(out[:], plaintext)
	return out, nil
}

func (k *key) destroy() {
	zero(k[:])
}

// zero overwrites a byte slice in memory with zeros.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// KEK is the key-encryption key derived from the administrator password.
// It only ever wraps the master key.
type KEK struct{ k key }

// MasterKey is the vault-wide key. It wraps project keys and data keys.
type MasterKey struct{ k key }

// ProjectKey is a per-project key. Its base64 form is the project token.
// It can unwrap the data keys of its own project and nothing else.
type ProjectKey struct{ k key }

// DataKey encrypts exactly one detail value.
type DataKey struct{ k key }

// SessionKey is the secret half of a session token. It wraps the master key
// for the lifetime of one session.
type SessionKey struct{ k key }

// NewMasterKey returns a fresh random master key.
func NewMasterKey() (MasterKey, error) {
	k, err := randomKey()
	return MasterKey{k}, err
}

// NewProjectKey returns a fresh random project key.
func NewProjectKey() (ProjectKey, error) {
	k, err := randomKey()
	return ProjectKey{k}, err
}

// NewDataKey returns a fresh random data key.
func NewDataKey() (DataKey, error) {
	k, err := randomKey()
	return DataKey{k}, err
}

// NewSessionKey returns a fresh random session key.
func NewSessionKey() (SessionKey, error) {
	k, err := randomKey()
	return SessionKey{k}, err
}

// WrapMasterKey seals m under the password-derived key.
func (kek *KEK) WrapMasterKey(m MasterKey) (Sealed, error) {
	return kek.k.wrap(purposeMasterKey, &m.k)
}

// UnwrapMasterKey opens a master key sealed by WrapMasterKey.
func (kek *KEK) UnwrapMasterKey(s Sealed) (MasterKey, error) {
	k, err := kek.k.unwrap(purposeMasterKey, s)
	return MasterKey{k}, err
}

// Destroy zeroes the key material.
func (kek *KEK) Destroy() { kek.k.destroy() }

// WrapProjectKey seals p under the master key.
func (m *MasterKey) WrapProjectKey(p ProjectKey) (Sealed, error) {
	return m.k.wrap(purposeProjectKey, &p.k)
}

// UnwrapProjectKey opens a project key sealed by WrapProjectKey.
func (m *MasterKey) UnwrapProjectKey(s Sealed) (ProjectKey, error) {
	k, err := m.k.unwrap(purposeProjectKey, s)
	return ProjectKey{k}, err
}

// WrapDataKey seals d under the master key (the admin copy).
func (m *MasterKey) WrapDataKey(d DataKey) (Sealed, error) {
	return m.k.wrap(purposeDataKey, &d.k)
}

// UnwrapDataKey opens the admin copy of a data key.
func (m *MasterKey) UnwrapDataKey(s Sealed) (DataKey, error) {
	k, err := m.k.unwrap(purposeDataKey, s)
	return DataKey{k}, err
}

// Destroy zeroes the key material.
func (m *MasterKey) Destroy() { m.k.destroy() }

// WrapDataKey seals d under the project key (the runtime copy).
func (p *ProjectKey) WrapDataKey(d DataKey) (Sealed, error) {
	return p.k.wrap(purposeDataKey, &d.k)
}

// UnwrapDataKey opens the runtime copy of a data key.
func (p *ProjectKey) UnwrapDataKey(s Sealed) (DataKey, error) {
	k, err := p.k.unwrap(purposeDataKey, s)
	return DataKey{k}, err
}

// Destroy zeroes the key material.
func (p *ProjectKey) Destroy() { p.k.destroy() }

// Seal encrypts a detail value.
func (d *DataKey) Seal(plaintext []byte) (Sealed, error) {
	return d.k.seal(purposeValue, plaintext)
}

// Open decrypts a detail value sealed by Seal.
func (d *DataKey) Open(s Sealed) ([]byte, error) {
	return d.k.open(purposeValue, s)
}

// Destroy zeroes the key material.
func (d *DataKey) Destroy() { d.k.destroy() }

// WrapMasterKey seals m under the session secret.
func (sk *SessionKey) WrapMasterKey(m MasterKey) (Sealed, error) {
	return sk.k.wrap(purposeSession, &m.k)
}

// UnwrapMasterKey opens a master key sealed by WrapMasterKey.
func (sk *SessionKey) UnwrapMasterKey(s Sealed) (MasterKey, error) {
	k, err := sk.k.unwrap(purposeSession, s)
	return MasterKey{k}, err
}

// Destroy zeroes the key material.
func (sk *SessionKey) Destroy() { sk.k.destroy() }

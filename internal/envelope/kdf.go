package envelope

import (
	"crypto/rand"
	"fmt"

	kerrors "github.com/kestrel-run/kestrel/internal/errors"

	"golang.org/x/crypto/scrypt"
)

// SaltSize is the length of the random salt stored in the vault config.
const SaltSize = 16

// scrypt work factor. Fixed for the life of the vault format.
const (
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

// NewSalt returns a fresh random KDF salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// DeriveKEK stretches the administrator password into a key-encryption key.
// A salt of the wrong size can only come from a damaged vault, so it is
// reported as an authentication failure.
func DeriveKEK(password []byte, salt []byte) (KEK, error) {
	if len(salt) != SaltSize {
		return KEK{}, kerrors.ErrAuthFailed
	}

	derived, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return KEK{}, fmt.Errorf("deriving key: %w", err)
	}
	defer zero(derived)

	var kek KEK
	copy(kek.k[:], derived)
	return kek, nil
}

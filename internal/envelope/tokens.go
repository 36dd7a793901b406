package envelope

import (
	"encoding/base64"
	"fmt"
	"strings"

	kerrors "github.com/kestrel-run/kestrel/internal/errors"

	"github.com/google/uuid"
)

const (
	// ProjectTokenSize is the decoded length of a project token.
	ProjectTokenSize = KeySize

	// SessionIDSize is the length of the lookup half of a session token.
	SessionIDSize = 16

	// SessionTokenSize is the decoded length of a session token: id followed by secret.
	SessionTokenSize = SessionIDSize + KeySize
)

// Token returns the distributable form of the project key.
func (p *ProjectKey) Token() string {
	return base64.StdEncoding.EncodeToString(p.k[:])
}

// ParseProjectToken decodes a project token back into its key.
func ParseProjectToken(token string) (ProjectKey, error) {
	raw, err := decodeToken(token)
	if err != nil {
		return ProjectKey{}, err
	}
	defer zero(raw)

	if len(raw) != ProjectTokenSize {
		return ProjectKey{}, fmt.Errorf("%w: project token must decode to %d bytes, got %d",
			kerrors.ErrMalformedToken, ProjectTokenSize, len(raw))
	}

	var p ProjectKey
	copy(p.k[:], raw)
	return p, nil
}

// SessionToken is the credential handed to an administrator at login.
// ID locates the session row; Key unwraps the master key stored in it.
// The two halves are drawn independently, so the ID reveals nothing about Key.
type SessionToken struct {
	ID  uuid.UUID
	Key SessionKey
}

// NewSessionToken draws a random id and secret.
func NewSessionToken() (SessionToken, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return SessionToken{}, fmt.Errorf("generating session id: %w", err)
	}
	sk, err := NewSessionKey()
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{ID: id, Key: sk}, nil
}

// String encodes the token for the environment or config file.
func (t SessionToken) String() string {
	raw := make([]byte, 0, SessionTokenSize)
	raw = append(raw, t.ID[:]...)
	raw = append(raw, t.Key.k[:]...)
	defer zero(raw)
	return base64.StdEncoding.EncodeToString(raw)
}

// ParseSessionID decodes only the lookup half of a session token.
func ParseSessionID(token string) (uuid.UUID, error) {
	t, err := ParseSessionToken(token)
	if err != nil {
		return uuid.Nil, err
	}
	defer t.Key.Destroy()
	return t.ID, nil
}

// ParseSessionToken decodes a session token. A string that decodes to a
// project token's length is reported with ErrProjectTokenGiven so the CLI can
// tell the user what went wrong.
func ParseSessionToken(token string) (SessionToken, error) {
	raw, err := decodeToken(token)
	if err != nil {
		return SessionToken{}, err
	}
	defer zero(raw)

	switch len(raw) {
	case SessionTokenSize:
	case ProjectTokenSize:
		return SessionToken{}, fmt.Errorf("%w: %w", kerrors.ErrMalformedToken, kerrors.ErrProjectTokenGiven)
	default:
		return SessionToken{}, fmt.Errorf("%w: session token must decode to %d bytes, got %d",
			kerrors.ErrMalformedToken, SessionTokenSize, len(raw))
	}

	var t SessionToken
	copy(t.ID[:], raw[:SessionIDSize])
	copy(t.Key.k[:], raw[SessionIDSize:])
	return t, nil
}

func decodeToken(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", kerrors.ErrMalformedToken)
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64", kerrors.ErrMalformedToken)
	}
	return raw, nil
}

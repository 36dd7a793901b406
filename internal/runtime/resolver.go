package runtime

import (
	"context"
	"fmt"
	"os"

	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/store"
	"github.com/kestrel-run/kestrel/internal/utils"
)

// TokenEnvPrefix prefixes the environment variable carrying a project token.
const TokenEnvPrefix = "KESTREL_TOKEN_"

// Resolver decrypts details for a worker holding one project token. It reads
// the details table through a read-only handle and never sees config or
// session rows.
type Resolver struct {
	db *store.DB
}

// Open opens an existing vault file read-only.
//
// Returns ErrVaultNotInitialized if the file does not exist.
func Open(ctx context.Context, path string) (*Resolver, error) {
	db, err := store.OpenReadOnly(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Resolver{db: db}, nil
}

// Close releases the underlying file handle.
func (r *Resolver) Close() error {
	return r.db.Close()
}

// LoadNeeded decrypts the details a task needs. needed maps the task's
// context names to detail keys under project; the result maps the same
// context names to plaintext values. Either every value is returned or none is.
//
// Returns ErrDetailNotFound if a detail is missing and ErrAuthFailed if a
// detail does not decrypt under key.
func (r *Resolver) LoadNeeded(ctx context.Context, key *envelope.ProjectKey, project string, needed map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(needed))
	for contextName, detailKey := range needed {
		value, err := r.load(ctx, key, project, detailKey)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", contextName, err)
		}
		out[contextName] = value
	}
	return out, nil
}

func (r *Resolver) load(ctx context.Context, key *envelope.ProjectKey, project, detailKey string) (string, error) {
	rec, err := store.GetDetail(ctx, r.db, project, detailKey)
	if err != nil {
		return "", err
	}

	dek, err := key.UnwrapDataKey(rec.ProjectWrapped)
	if err != nil {
		return "", err
	}
	defer dek.Destroy()

	plaintext, err := dek.Open(rec.Value)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// TokenEnvVar returns the environment variable that carries project's token:
// the prefix followed by the upper-cased name with every other character
// replaced by an underscore.
func TokenEnvVar(project string) string {
	return TokenEnvPrefix + utils.EnvName(project)
}

// TokenFromEnv reads and parses project's token from the environment.
//
// Returns ErrTokenNotSet if the variable is empty and ErrMalformedToken if it
// does not decode to a project key.
func TokenFromEnv(project string) (envelope.ProjectKey, error) {
	name := TokenEnvVar(project)
	token := os.Getenv(name)
	if token == "" {
		return envelope.ProjectKey{}, fmt.Errorf("%w: %s", kerrors.ErrTokenNotSet, name)
	}
	return envelope.ParseProjectToken(token)
}

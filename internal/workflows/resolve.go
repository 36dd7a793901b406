package workflows

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kestrel-run/kestrel/internal/audit"
	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/runtime"
)

// ResolveOptions configures the worker-side resolve workflow.
type ResolveOptions struct {
	// VaultPath overrides the resolved vault location when set.
	VaultPath string

	ProjectName string

	// Token is the project token. If empty, it is read from
	// KESTREL_TOKEN_<PROJECT>.
	Token string

	// Needed maps context names to detail keys.
	Needed map[string]string
}

// ResolvedValue is one context name with its plaintext.
type ResolvedValue struct {
	Name  string
	Value string
}

// ResolveResult holds the resolved values ordered by context name.
type ResolveResult struct {
	ProjectName string
	Values      []ResolvedValue
}

// ParseMappings turns "context=detail" arguments into a map. A bare name maps
// to a detail with the same key.
//
// Returns ErrInvalidMapping if an argument has an empty side or repeats a
// context name.
func ParseMappings(args []string) (map[string]string, error) {
	needed := make(map[string]string, len(args))
	for _, arg := range args {
		name, key, found := strings.Cut(arg, "=")
		if !found {
			key = name
		}
		if name == "" || key == "" {
			return nil, fmt.Errorf("%w: %q", kerrors.ErrInvalidMapping, arg)
		}
		if _, dup := needed[name]; dup {
			return nil, fmt.Errorf("%w: %q given twice", kerrors.ErrInvalidMapping, name)
		}
		needed[name] = key
	}
	return needed, nil
}

var shellVarName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CheckShellNames verifies that every context name in needed can be printed
// as an export line for a POSIX shell.
//
// Returns ErrInvalidMapping naming the first offending context name.
func CheckShellNames(needed map[string]string) error {
	names := make([]string, 0, len(needed))
	for name := range needed {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !shellVarName.MatchString(name) {
			return fmt.Errorf("%w: %q is not a shell variable name", kerrors.ErrInvalidMapping, name)
		}
	}
	return nil
}

// Resolve opens the vault read-only and decrypts the needed details with the
// project token alone. It never touches the master key or sessions.
//
// Returns ErrTokenNotSet if no token was given and the environment has none.
// Returns ErrAuthFailed if the token does not belong to the project.
// Returns ErrDetailNotFound if any needed detail is missing.
func Resolve(ctx context.Context, opts ResolveOptions) (*ResolveResult, error) {
	var (
		key envelope.ProjectKey
		err error
	)
	if opts.Token != "" {
		key, err = envelope.ParseProjectToken(opts.Token)
	} else {
		key, err = runtime.TokenFromEnv(opts.ProjectName)
	}
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	vaultOpts := VaultOptions{VaultPath: opts.VaultPath}
	path, err := vaultOpts.path()
	if err != nil {
		return nil, err
	}

	r, err := runtime.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	values, err := r.LoadNeeded(ctx, &key, opts.ProjectName, opts.Needed)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{ProjectName: opts.ProjectName}
	for name, value := range values {
		result.Values = append(result.Values, ResolvedValue{Name: name, Value: value})
	}
	sort.Slice(result.Values, func(i, j int) bool {
		return result.Values[i].Name < result.Values[j].Name
	})

	entry := audit.LogWithUser("resolve")
	entry.Project = opts.ProjectName
	entry.Count = len(result.Values)
	audit.Log(path, entry)

	return result, nil
}

package runtime

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/vault"
)

const testPassword = "p1"

// setupVault initializes a vault at a temp path and returns the path and an
// unlocked admin handle.
func setupVault(t *testing.T) (string, *vault.Vault, *envelope.MasterKey) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")

	v, err := vault.Open(ctx, path)
	if err != nil {
		t.Fatalf("vault.Open() error = %v", err)
	}
	t.Cleanup(func() { v.Close() })

	if err := v.Init(ctx, testPassword); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	mk, err := v.Unlock(ctx, testPassword)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	return path, v, &mk
}

func openResolver(t *testing.T, path string) *Resolver {
	t.Helper()
	r, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func parseToken(t *testing.T, token string) *envelope.ProjectKey {
	t.Helper()
	pk, err := envelope.ParseProjectToken(token)
	if err != nil {
		t.Fatalf("ParseProjectToken() error = %v", err)
	}
	return &pk
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	path, v, mk := setupVault(t)

	t1, err := v.CreateProject(ctx, mk, "botc")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if err := v.SetDetail(ctx, mk, "botc", "email", "a@b.com"); err != nil {
		t.Fatalf("SetDetail() error = %v", err)
	}
	if got, err := v.GetDetail(ctx, mk, "botc", "email"); err != nil || got != "a@b.com" {
		t.Fatalf("GetDetail() = %q, %v; want a@b.com", got, err)
	}

	r := openResolver(t, path)
	needed := map[string]string{"email": "email"}

	got, err := r.LoadNeeded(ctx, parseToken(t, t1), "botc", needed)
	if err != nil {
		t.Fatalf("LoadNeeded(T1) error = %v", err)
	}
	if got["email"] != "a@b.com" {
		t.Errorf("LoadNeeded(T1) = %v, want email=a@b.com", got)
	}

	t2, err := v.RotateProject(ctx, mk, "botc")
	if err != nil {
		t.Fatalf("RotateProject() error = %v", err)
	}

	if _, err := r.LoadNeeded(ctx, parseToken(t, t1), "botc", needed); !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Errorf("LoadNeeded(T1) after rotation error = %v, want ErrAuthFailed", err)
	}

	got, err = r.LoadNeeded(ctx, parseToken(t, t2), "botc", needed)
	if err != nil {
		t.Fatalf("LoadNeeded(T2) error = %v", err)
	}
	if len(got) != 1 || got["email"] != "a@b.com" {
		t.Errorf("LoadNeeded(T2) = %v, want {email: a@b.com}", got)
	}
}

func TestLoadNeededMapsContextNames(t *testing.T) {
	ctx := context.Background()
	path, v, mk := setupVault(t)

	token, err := v.CreateProject(ctx, mk, "shop")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	details := map[string]string{"login-email": "me@shop.test", "login-pass": "s3cret", "unused": "x"}
	for k, val := range details {
		if err := v.SetDetail(ctx, mk, "shop", k, val); err != nil {
			t.Fatalf("SetDetail(%q) error = %v", k, err)
		}
	}

	r := openResolver(t, path)
	got, err := r.LoadNeeded(ctx, parseToken(t, token), "shop", map[string]string{
		"username": "login-email",
		"password": "login-pass",
	})
	if err != nil {
		t.Fatalf("LoadNeeded() error = %v", err)
	}

	want := map[string]string{"username": "me@shop.test", "password": "s3cret"}
	if len(got) != len(want) {
		t.Fatalf("LoadNeeded() returned %d entries, want %d", len(got), len(want))
	}
	for k, val := range want {
		if got[k] != val {
			t.Errorf("LoadNeeded()[%q] = %q, want %q", k, got[k], val)
		}
	}
}

func TestLoadNeededIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	path, v, mk := setupVault(t)

	token, err := v.CreateProject(ctx, mk, "botc")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if err := v.SetDetail(ctx, mk, "botc", "email", "a@b.com"); err != nil {
		t.Fatalf("SetDetail() error = %v", err)
	}

	r := openResolver(t, path)
	got, err := r.LoadNeeded(ctx, parseToken(t, token), "botc", map[string]string{
		"email":    "email",
		"password": "password",
	})
	if !errors.Is(err, kerrors.ErrDetailNotFound) {
		t.Fatalf("LoadNeeded() error = %v, want ErrDetailNotFound", err)
	}
	if got != nil {
		t.Errorf("LoadNeeded() returned partial results %v", got)
	}
}

func TestCrossProjectTokenRejected(t *testing.T) {
	ctx := context.Background()
	path, v, mk := setupVault(t)

	tokenA, err := v.CreateProject(ctx, mk, "a")
	if err != nil {
		t.Fatalf("CreateProject(a) error = %v", err)
	}
	if _, err := v.CreateProject(ctx, mk, "b"); err != nil {
		t.Fatalf("CreateProject(b) error = %v", err)
	}
	if err := v.SetDetail(ctx, mk, "b", "secret", "only-b"); err != nil {
		t.Fatalf("SetDetail() error = %v", err)
	}

	r := openResolver(t, path)
	got, err := r.LoadNeeded(ctx, parseToken(t, tokenA), "b", map[string]string{"s": "secret"})
	if !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Fatalf("LoadNeeded() with foreign token error = %v, want ErrAuthFailed", err)
	}
	if got != nil {
		t.Errorf("LoadNeeded() with foreign token returned %v", got)
	}
}

func TestOpenMissingVault(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "absent.db"))
	if !errors.Is(err, kerrors.ErrVaultNotInitialized) {
		t.Errorf("Open() error = %v, want ErrVaultNotInitialized", err)
	}
}

func TestTokenEnvVar(t *testing.T) {
	tests := []struct {
		project string
		want    string
	}{
		{"botc", "KESTREL_TOKEN_BOTC"},
		{"my-shop", "KESTREL_TOKEN_MY_SHOP"},
		{"v1.2_beta", "KESTREL_TOKEN_V1_2_BETA"},
	}
	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			if got := TokenEnvVar(tt.project); got != tt.want {
				t.Errorf("TokenEnvVar(%q) = %q, want %q", tt.project, got, tt.want)
			}
		})
	}
}

func TestTokenFromEnv(t *testing.T) {
	if _, err := TokenFromEnv("unset-project"); !errors.Is(err, kerrors.ErrTokenNotSet) {
		t.Errorf("TokenFromEnv() unset error = %v, want ErrTokenNotSet", err)
	}

	t.Setenv("KESTREL_TOKEN_BROKEN", "abc")
	if _, err := TokenFromEnv("broken"); !errors.Is(err, kerrors.ErrMalformedToken) {
		t.Errorf("TokenFromEnv() malformed error = %v, want ErrMalformedToken", err)
	}

	pk, err := envelope.NewProjectKey()
	if err != nil {
		t.Fatalf("NewProjectKey() error = %v", err)
	}
	t.Setenv("KESTREL_TOKEN_BOTC", pk.Token())
	got, err := TokenFromEnv("botc")
	if err != nil {
		t.Fatalf("TokenFromEnv() error = %v", err)
	}
	if got != pk {
		t.Error("TokenFromEnv() returned a different key")
	}
}

package vault

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/store"
)

const testPassword = "correct horse battery staple"

// fakeClock is a settable clock for session expiry tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func openTestVault(t *testing.T, opts ...Option) *Vault {
	t.Helper()
	v, err := Open(context.Background(), filepath.Join(t.TempDir(), "vault.db"), opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

// unlockedVault returns an initialized vault and its master key.
func unlockedVault(t *testing.T, opts ...Option) (*Vault, *envelope.MasterKey) {
	t.Helper()
	ctx := context.Background()
	v := openTestVault(t, opts...)

	if err := v.Init(ctx, testPassword); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	mk, err := v.Unlock(ctx, testPassword)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	t.Cleanup(mk.Destroy)
	return v, &mk
}

func mustCreateProject(t *testing.T, v *Vault, mk *envelope.MasterKey, name string) string {
	t.Helper()
	token, err := v.CreateProject(context.Background(), mk, name)
	if err != nil {
		t.Fatalf("CreateProject(%q) error = %v", name, err)
	}
	return token
}

func mustSetDetail(t *testing.T, v *Vault, mk *envelope.MasterKey, project, key, value string) {
	t.Helper()
	if err := v.SetDetail(context.Background(), mk, project, key, value); err != nil {
		t.Fatalf("SetDetail(%q, %q) error = %v", project, key, err)
	}
}

// openWithToken decrypts a detail the way a worker would, through the
// project-wrapped data key.
func openWithToken(t *testing.T, v *Vault, token, project, key string) (string, error) {
	t.Helper()
	pk, err := envelope.ParseProjectToken(token)
	if err != nil {
		t.Fatalf("ParseProjectToken() error = %v", err)
	}
	defer pk.Destroy()

	rec, err := store.GetDetail(context.Background(), v.db, project, key)
	if err != nil {
		return "", err
	}
	dek, err := pk.UnwrapDataKey(rec.ProjectWrapped)
	if err != nil {
		return "", err
	}
	defer dek.Destroy()
	plaintext, err := dek.Open(rec.Value)
	return string(plaintext), err
}

func TestInitAndUnlock(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t)

	if _, err := v.Unlock(ctx, testPassword); !errors.Is(err, kerrors.ErrVaultNotInitialized) {
		t.Fatalf("Unlock() before Init error = %v, want ErrVaultNotInitialized", err)
	}
	if ok, _ := v.IsInitialized(ctx); ok {
		t.Fatal("IsInitialized() = true before Init")
	}

	if err := v.Init(ctx, ""); !errors.Is(err, kerrors.ErrInvalidPassword) {
		t.Fatalf("Init(\"\") error = %v, want ErrInvalidPassword", err)
	}
	if err := v.Init(ctx, testPassword); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := v.Init(ctx, testPassword); !errors.Is(err, kerrors.ErrVaultAlreadyInitialized) {
		t.Fatalf("second Init() error = %v, want ErrVaultAlreadyInitialized", err)
	}

	mk1, err := v.Unlock(ctx, testPassword)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	mk2, err := v.Unlock(ctx, testPassword)
	if err != nil {
		t.Fatalf("second Unlock() error = %v", err)
	}
	if mk1 != mk2 {
		t.Error("Unlock() returned different master keys for the same password")
	}

	_, err = v.Unlock(ctx, "wrong")
	if !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Fatalf("Unlock(wrong) error = %v, want ErrAuthFailed", err)
	}
	if err.Error() != kerrors.ErrAuthFailed.Error() {
		t.Errorf("Unlock(wrong) message = %q, want the generic message", err.Error())
	}
}

func TestUnlockCreatesMasterKeyAfterSaltOnlyInit(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t)

	salt, err := envelope.NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}
	if err := store.PutConfig(ctx, v.db, store.ConfigSalt, salt); err != nil {
		t.Fatalf("PutConfig() error = %v", err)
	}

	mk1, err := v.Unlock(ctx, testPassword)
	if err != nil {
		t.Fatalf("first Unlock() error = %v", err)
	}
	mk2, err := v.Unlock(ctx, testPassword)
	if err != nil {
		t.Fatalf("second Unlock() error = %v", err)
	}
	if mk1 != mk2 {
		t.Error("second Unlock() did not return the stored master key")
	}
	if _, err := v.Unlock(ctx, "other"); !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Errorf("Unlock(other) error = %v, want ErrAuthFailed", err)
	}
}

func TestAdminRoundTrip(t *testing.T) {
	ctx := context.Background()
	v, mk := unlockedVault(t)
	mustCreateProject(t, v, mk, "botc")

	values := []string{
		"",
		"a@b.com",
		"pässwörd with ünïcode ✓",
		"line one\nline two\ttabbed",
		"日本語のパスワード",
		string(make([]byte, 4096)),
	}
	for i, want := range values {
		key := []string{"empty", "email", "unicode", "multiline", "cjk", "large"}[i]
		mustSetDetail(t, v, mk, "botc", key, want)

		got, err := v.GetDetail(ctx, mk, "botc", key)
		if err != nil {
			t.Fatalf("GetDetail(%q) error = %v", key, err)
		}
		if got != want {
			t.Errorf("GetDetail(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestSetDetailReplacesDataKey(t *testing.T) {
	ctx := context.Background()
	v, mk := unlockedVault(t)
	mustCreateProject(t, v, mk, "botc")

	mustSetDetail(t, v, mk, "botc", "email", "first")
	before, err := store.GetDetail(ctx, v.db, "botc", "email")
	if err != nil {
		t.Fatalf("store.GetDetail() error = %v", err)
	}

	mustSetDetail(t, v, mk, "botc", "email", "second")
	after, err := store.GetDetail(ctx, v.db, "botc", "email")
	if err != nil {
		t.Fatalf("store.GetDetail() error = %v", err)
	}

	if string(before.MasterWrapped.Ciphertext) == string(after.MasterWrapped.Ciphertext) {
		t.Error("SetDetail() reused the previous data key")
	}

	// The old master-wrapped data key must not open the new value.
	dek, err := mk.UnwrapDataKey(before.MasterWrapped)
	if err != nil {
		t.Fatalf("UnwrapDataKey() error = %v", err)
	}
	if _, err := dek.Open(after.Value); !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Errorf("old data key opened new value, error = %v", err)
	}

	got, err := v.GetDetail(ctx, mk, "botc", "email")
	if err != nil || got != "second" {
		t.Errorf("GetDetail() = %q, %v; want %q", got, err, "second")
	}
}

func TestDetailErrors(t *testing.T) {
	ctx := context.Background()
	v, mk := unlockedVault(t)
	mustCreateProject(t, v, mk, "botc")

	if err := v.SetDetail(ctx, mk, "missing", "k", "v"); !errors.Is(err, kerrors.ErrProjectNotFound) {
		t.Errorf("SetDetail() on missing project error = %v, want ErrProjectNotFound", err)
	}
	if err := v.SetDetail(ctx, mk, "botc", "bad key", "v"); !errors.Is(err, kerrors.ErrInvalidName) {
		t.Errorf("SetDetail() with bad key error = %v, want ErrInvalidName", err)
	}
	if _, err := v.GetDetail(ctx, mk, "botc", "nope"); !errors.Is(err, kerrors.ErrDetailNotFound) {
		t.Errorf("GetDetail() missing error = %v, want ErrDetailNotFound", err)
	}
	if err := v.RemoveDetail(ctx, "botc", "nope"); !errors.Is(err, kerrors.ErrDetailNotFound) {
		t.Errorf("RemoveDetail() missing error = %v, want ErrDetailNotFound", err)
	}

	mustSetDetail(t, v, mk, "botc", "email", "a@b.com")
	if err := v.RemoveDetail(ctx, "botc", "email"); err != nil {
		t.Fatalf("RemoveDetail() error = %v", err)
	}
	if _, err := v.GetDetail(ctx, mk, "botc", "email"); !errors.Is(err, kerrors.ErrDetailNotFound) {
		t.Errorf("GetDetail() after remove error = %v, want ErrDetailNotFound", err)
	}
}

func TestGetDetailWithForeignMasterKey(t *testing.T) {
	ctx := context.Background()
	v, mk := unlockedVault(t)
	mustCreateProject(t, v, mk, "botc")
	mustSetDetail(t, v, mk, "botc", "email", "a@b.com")

	other, err := envelope.NewMasterKey()
	if err != nil {
		t.Fatalf("NewMasterKey() error = %v", err)
	}
	if _, err := v.GetDetail(ctx, &other, "botc", "email"); !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Errorf("GetDetail() with foreign master key error = %v, want ErrAuthFailed", err)
	}
	if _, err := v.ExportToken(ctx, &other, "botc"); !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Errorf("ExportToken() with foreign master key error = %v, want ErrAuthFailed", err)
	}
}

func TestListDetails(t *testing.T) {
	ctx := context.Background()
	v, mk := unlockedVault(t)
	mustCreateProject(t, v, mk, "beta")
	mustCreateProject(t, v, mk, "alpha")
	mustSetDetail(t, v, mk, "beta", "token", "x")
	mustSetDetail(t, v, mk, "alpha", "user", "x")
	mustSetDetail(t, v, mk, "alpha", "pass", "x")

	all, err := v.ListDetails(ctx, "")
	if err != nil {
		t.Fatalf("ListDetails(\"\") error = %v", err)
	}
	want := []string{"alpha/pass", "alpha/user", "beta/token"}
	if len(all) != len(want) {
		t.Fatalf("ListDetails(\"\") returned %d entries, want %d", len(all), len(want))
	}
	for i, ref := range all {
		if got := ref.Project + "/" + ref.Key; got != want[i] {
			t.Errorf("entry %d = %s, want %s", i, got, want[i])
		}
	}

	only, err := v.ListDetails(ctx, "beta")
	if err != nil {
		t.Fatalf("ListDetails(beta) error = %v", err)
	}
	if len(only) != 1 || only[0].Key != "token" {
		t.Errorf("ListDetails(beta) = %+v, want [beta/token]", only)
	}
}

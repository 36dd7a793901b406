package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrel-run/kestrel/internal/configs"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
)

const testPassword = "correct horse"

// setupTestEnv points settings at a temp directory and clears the
// environment the workflows read.
func setupTestEnv(t *testing.T) VaultOptions {
	t.Helper()
	tempDir := t.TempDir()

	old := *configs.KestrelSettings
	configs.KestrelSettings.ConfigPath = filepath.Join(tempDir, "config", "config.toml")
	configs.KestrelSettings.DefaultVaultPath = filepath.Join(tempDir, "data", "vault.db")
	configs.KestrelSettings.Username = "tester"
	t.Cleanup(func() { *configs.KestrelSettings = old })

	t.Setenv(configs.VaultEnvVar, "")
	t.Setenv(configs.SessionEnvVar, "")

	return VaultOptions{Password: staticPassword(testPassword)}
}

func staticPassword(password string) PasswordFunc {
	return func(string) (string, error) { return password, nil }
}

// noPassword fails the test if a workflow asks for the password.
func noPassword(t *testing.T) PasswordFunc {
	return func(prompt string) (string, error) {
		t.Errorf("unexpected password prompt %q", prompt)
		return "", errors.New("no password")
	}
}

func initVault(t *testing.T, opts VaultOptions) {
	t.Helper()
	if _, err := Init(context.Background(), InitOptions{VaultOptions: opts}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
}

func createProject(t *testing.T, opts VaultOptions, name string) string {
	t.Helper()
	result, err := CreateProject(context.Background(), CreateOptions{VaultOptions: opts, ProjectName: name})
	if err != nil {
		t.Fatalf("CreateProject(%q) error = %v", name, err)
	}
	return result.Token
}

func setDetail(t *testing.T, opts VaultOptions, project, key, value string) {
	t.Helper()
	_, err := SetDetail(context.Background(), SetDetailOptions{
		DetailOptions: DetailOptions{VaultOptions: opts, ProjectName: project, Key: key},
		Value:         value,
	})
	if err != nil {
		t.Fatalf("SetDetail(%s/%s) error = %v", project, key, err)
	}
}

func TestInitAndStatus(t *testing.T) {
	ctx := context.Background()
	opts := setupTestEnv(t)

	status, err := Status(ctx, StatusOptions{VaultOptions: opts})
	if err != nil {
		t.Fatalf("Status() before init error = %v", err)
	}
	if status.Initialized {
		t.Error("Status() reported an initialized vault before init")
	}

	result, err := Init(ctx, InitOptions{VaultOptions: opts})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if result.VaultPath != configs.KestrelSettings.DefaultVaultPath {
		t.Errorf("Init() VaultPath = %q, want default %q", result.VaultPath, configs.KestrelSettings.DefaultVaultPath)
	}
	info, err := os.Stat(result.VaultPath)
	if err != nil {
		t.Fatalf("Stat(vault) error = %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("vault file mode = %04o, want 0600", mode)
	}

	if _, err := Init(ctx, InitOptions{VaultOptions: opts}); !errors.Is(err, kerrors.ErrVaultAlreadyInitialized) {
		t.Errorf("second Init() error = %v, want ErrVaultAlreadyInitialized", err)
	}

	status, err = Status(ctx, StatusOptions{VaultOptions: opts})
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.Initialized || status.Active || status.Source != "" {
		t.Errorf("Status() = %+v, want initialized with no session", status)
	}
}

func TestInitRejectsEmptyPassword(t *testing.T) {
	opts := setupTestEnv(t)
	opts.Password = staticPassword("")

	if _, err := Init(context.Background(), InitOptions{VaultOptions: opts}); !errors.Is(err, kerrors.ErrInvalidPassword) {
		t.Errorf("Init(\"\") error = %v, want ErrInvalidPassword", err)
	}
}

func TestCommandsRequireInitializedVault(t *testing.T) {
	ctx := context.Background()
	opts := setupTestEnv(t)

	if _, err := CreateProject(ctx, CreateOptions{VaultOptions: opts, ProjectName: "botc"}); !errors.Is(err, kerrors.ErrVaultNotInitialized) {
		t.Errorf("CreateProject() error = %v, want ErrVaultNotInitialized", err)
	}
	if _, err := os.Stat(configs.KestrelSettings.DefaultVaultPath); !os.IsNotExist(err) {
		t.Error("CreateProject() on a missing vault created the vault file")
	}
	if _, err := Login(ctx, LoginOptions{VaultOptions: opts}); !errors.Is(err, kerrors.ErrVaultNotInitialized) {
		t.Errorf("Login() error = %v, want ErrVaultNotInitialized", err)
	}
}

func TestWrongPassword(t *testing.T) {
	ctx := context.Background()
	opts := setupTestEnv(t)
	initVault(t, opts)

	opts.Password = staticPassword("wrong")
	_, err := CreateProject(ctx, CreateOptions{VaultOptions: opts, ProjectName: "botc"})
	if !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Fatalf("CreateProject() with wrong password error = %v, want ErrAuthFailed", err)
	}
	if err.Error() != kerrors.ErrAuthFailed.Error() {
		t.Errorf("error message = %q, want the generic message", err.Error())
	}
}

func TestDetailWorkflows(t *testing.T) {
	ctx := context.Background()
	opts := setupTestEnv(t)
	initVault(t, opts)
	createProject(t, opts, "botc")

	setDetail(t, opts, "botc", "email", "a@b.com")
	setDetail(t, opts, "botc", "password", "hunter2")

	got, err := GetDetail(ctx, DetailOptions{VaultOptions: opts, ProjectName: "botc", Key: "email"})
	if err != nil {
		t.Fatalf("GetDetail() error = %v", err)
	}
	if got.Value != "a@b.com" {
		t.Errorf("GetDetail() = %q, want a@b.com", got.Value)
	}
	if got.Auth == nil || got.Auth.Source != AuthPassword {
		t.Errorf("GetDetail() auth = %+v, want password", got.Auth)
	}

	list, err := ListDetails(ctx, ListDetailsOptions{VaultOptions: opts, ProjectName: "botc"})
	if err != nil {
		t.Fatalf("ListDetails() error = %v", err)
	}
	if len(list.Details) != 2 || list.Details[0].Key != "email" || list.Details[1].Key != "password" {
		t.Errorf("ListDetails() = %+v, want email then password", list.Details)
	}

	if _, err := RemoveDetail(ctx, DetailOptions{VaultOptions: opts, ProjectName: "botc", Key: "email"}); err != nil {
		t.Fatalf("RemoveDetail() error = %v", err)
	}
	if _, err := GetDetail(ctx, DetailOptions{VaultOptions: opts, ProjectName: "botc", Key: "email"}); !errors.Is(err, kerrors.ErrDetailNotFound) {
		t.Errorf("GetDetail() after remove error = %v, want ErrDetailNotFound", err)
	}

	_, err = SetDetail(ctx, SetDetailOptions{
		DetailOptions: DetailOptions{VaultOptions: opts, ProjectName: "missing", Key: "k"},
		Value:         "v",
	})
	if !errors.Is(err, kerrors.ErrProjectNotFound) {
		t.Errorf("SetDetail() on missing project error = %v, want ErrProjectNotFound", err)
	}
}

func TestProjectWorkflows(t *testing.T) {
	ctx := context.Background()
	opts := setupTestEnv(t)
	initVault(t, opts)
	token := createProject(t, opts, "old")
	setDetail(t, opts, "old", "k", "v")

	exported, err := ExportToken(ctx, ExportOptions{VaultOptions: opts, ProjectName: "old"})
	if err != nil {
		t.Fatalf("ExportToken() error = %v", err)
	}
	if exported.Token != token {
		t.Error("ExportToken() differs from the token returned at creation")
	}

	if _, err := RenameProject(ctx, RenameOptions{VaultOptions: opts, OldName: "old", NewName: "new"}); err != nil {
		t.Fatalf("RenameProject() error = %v", err)
	}

	list, err := ListProjects(ctx, ListProjectsOptions{VaultOptions: opts})
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(list.Projects) != 1 || list.Projects[0].Name != "new" || list.Projects[0].DetailCount != 1 {
		t.Errorf("ListProjects() = %+v, want new with 1 detail", list.Projects)
	}

	removed, err := RemoveProject(ctx, RemoveOptions{VaultOptions: opts, ProjectName: "new"})
	if err != nil {
		t.Fatalf("RemoveProject() error = %v", err)
	}
	if removed.DetailCount != 1 {
		t.Errorf("RemoveProject() DetailCount = %d, want 1", removed.DetailCount)
	}
	if _, err := RemoveProject(ctx, RemoveOptions{VaultOptions: opts, ProjectName: "new"}); !errors.Is(err, kerrors.ErrProjectNotFound) {
		t.Errorf("second RemoveProject() error = %v, want ErrProjectNotFound", err)
	}
}

func TestCreateProjectDefaultName(t *testing.T) {
	opts := setupTestEnv(t)
	initVault(t, opts)

	dir := filepath.Join(t.TempDir(), "My Shop")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	defer os.Chdir(wd)

	for _, want := range []string{"my-shop", "my-shop-2"} {
		result, err := CreateProject(context.Background(), CreateOptions{VaultOptions: opts})
		if err != nil {
			t.Fatalf("CreateProject() error = %v", err)
		}
		if result.ProjectName != want {
			t.Errorf("CreateProject() name = %q, want %q", result.ProjectName, want)
		}
	}
}

func TestRotateAndResolve(t *testing.T) {
	ctx := context.Background()
	opts := setupTestEnv(t)
	initVault(t, opts)
	oldToken := createProject(t, opts, "botc")
	setDetail(t, opts, "botc", "email", "a@b.com")
	setDetail(t, opts, "botc", "password", "hunter2")

	needed, err := ParseMappings([]string{"user=email", "password"})
	if err != nil {
		t.Fatalf("ParseMappings() error = %v", err)
	}

	t.Setenv("KESTREL_TOKEN_BOTC", oldToken)
	resolved, err := Resolve(ctx, ResolveOptions{ProjectName: "botc", Needed: needed})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []ResolvedValue{{"password", "hunter2"}, {"user", "a@b.com"}}
	if len(resolved.Values) != len(want) {
		t.Fatalf("Resolve() = %+v, want %+v", resolved.Values, want)
	}
	for i := range want {
		if resolved.Values[i] != want[i] {
			t.Errorf("Resolve()[%d] = %+v, want %+v", i, resolved.Values[i], want[i])
		}
	}

	rotated, err := RotateProject(ctx, RotateOptions{VaultOptions: opts, ProjectName: "botc"})
	if err != nil {
		t.Fatalf("RotateProject() error = %v", err)
	}
	if rotated.DetailCount != 2 {
		t.Errorf("RotateProject() DetailCount = %d, want 2", rotated.DetailCount)
	}

	if _, err := Resolve(ctx, ResolveOptions{ProjectName: "botc", Needed: needed}); !errors.Is(err, kerrors.ErrAuthFailed) {
		t.Errorf("Resolve() with old token error = %v, want ErrAuthFailed", err)
	}

	resolved, err = Resolve(ctx, ResolveOptions{ProjectName: "botc", Token: rotated.Token, Needed: needed})
	if err != nil {
		t.Fatalf("Resolve() with new token error = %v", err)
	}
	if len(resolved.Values) != 2 {
		t.Errorf("Resolve() with new token = %+v", resolved.Values)
	}
}

func TestResolveWithoutToken(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("KESTREL_TOKEN_NOPE", "")

	_, err := Resolve(context.Background(), ResolveOptions{ProjectName: "nope", Needed: map[string]string{"a": "a"}})
	if !errors.Is(err, kerrors.ErrTokenNotSet) {
		t.Errorf("Resolve() error = %v, want ErrTokenNotSet", err)
	}
}

func TestParseMappings(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]string
		wantErr bool
	}{
		{"pairs", []string{"user=email", "pass=password"}, map[string]string{"user": "email", "pass": "password"}, false},
		{"bare name", []string{"email"}, map[string]string{"email": "email"}, false},
		{"empty context", []string{"=email"}, nil, true},
		{"empty detail", []string{"user="}, nil, true},
		{"duplicate", []string{"user=a", "user=b"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMappings(tt.args)
			if tt.wantErr {
				if !errors.Is(err, kerrors.ErrInvalidMapping) {
					t.Errorf("ParseMappings(%v) error = %v, want ErrInvalidMapping", tt.args, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMappings(%v) error = %v", tt.args, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseMappings(%v) = %v, want %v", tt.args, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("ParseMappings(%v)[%q] = %q, want %q", tt.args, k, got[k], v)
				}
			}
		})
	}
}

func TestCheckShellNames(t *testing.T) {
	tests := []struct {
		name    string
		needed  map[string]string
		wantErr bool
	}{
		{"upper and underscores", map[string]string{"API_KEY": "api-key", "_x1": "x"}, false},
		{"hyphen", map[string]string{"a-b": "k"}, true},
		{"command separator", map[string]string{"x;rm -rf ~": "k"}, true},
		{"leading digit", map[string]string{"1password": "k"}, true},
		{"one bad among good", map[string]string{"USER": "email", "pass word": "password"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckShellNames(tt.needed)
			if tt.wantErr && !errors.Is(err, kerrors.ErrInvalidMapping) {
				t.Errorf("CheckShellNames(%v) error = %v, want ErrInvalidMapping", tt.needed, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckShellNames(%v) error = %v", tt.needed, err)
			}
		})
	}
}

func TestCleanRemovesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	opts := setupTestEnv(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	opts.Now = func() time.Time { return now }
	initVault(t, opts)

	if _, err := Login(ctx, LoginOptions{VaultOptions: opts, Minutes: 1, NoSave: true}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := Login(ctx, LoginOptions{VaultOptions: opts, Minutes: 60, NoSave: true}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	now = now.Add(10 * time.Minute)
	result, err := Clean(ctx, CleanOptions{VaultOptions: opts})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if result.RemovedCount != 1 {
		t.Errorf("Clean() RemovedCount = %d, want 1", result.RemovedCount)
	}
}

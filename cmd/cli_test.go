package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetIn(strings.NewReader(input))
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeAccountsFixture(home string) error {
	configDir := filepath.Join(home, ".vulture")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	accounts := `version = 1

[[accounts]]
id = "bot1"
name = "Primary"
credential_ref = "vulture://bot1/password"

[accounts.quota]
follows_today = 0
unfollows_today = 0
actions_this_hour = 0
`

	return os.WriteFile(filepath.Join(configDir, "accounts.toml"), []byte(accounts), 0o644)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dev")
}

func TestAccountAddListRemove(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home,
		"account", "add", "bot1", "--name", "Primary", "--password", "hunter2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "added account bot1")

	stdout, _, err = executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "bot1")
	assert.Contains(t, stdout, "Primary")
	assert.Contains(t, stdout, "logged_out")

	stdout, _, err = executeCLI(t, home, "account", "remove", "bot1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed account bot1")

	stdout, _, err = executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "bot1")
}

func TestAccountAddRequiresPassword(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "account", "add", "bot1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password required")
}

func TestAccountAddReadsPasswordFromStdin(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLIWithInput(t, home, "hunter2\n", "account", "add", "bot1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "added account bot1")

	// the secret landed in the credential store, not in argv
	secret, err := os.ReadFile(filepath.Join(home, ".vulture", "credentials", "bot1", "password"))
	require.NoError(t, err)
	assert.Contains(t, string(secret), "hunter2")
}

func TestStatusRendersAccounts(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "accounts: 1")
	assert.Contains(t, stdout, "Primary (bot1)")
	assert.Contains(t, stdout, "follows today:")
}

func TestStatusJSONOutput(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "status", "--account", "bot1", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"ID\": \"bot1\"")
	assert.Contains(t, stdout, "\"Session\": \"logged_out\"")
}

func TestStatusUnknownAccount(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "status", "--account", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestSettingsShowDefaults(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "follow delay:        30-90 s")
	assert.Contains(t, stdout, "daily follow limit:  100")
	assert.Contains(t, stdout, "actions per hour:    30")
}

func TestSettingsSetOverrideAndClear(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home,
		"settings", "set", "--account", "bot1", "--daily-follows", "10", "--follow-delay", "10-20")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "override bot1:")
	assert.Contains(t, stdout, "daily follow limit:  10")
	assert.Contains(t, stdout, "follow delay:        10-20 s")

	_, _, err = executeCLI(t, home, "settings", "clear-override", "bot1")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "settings", "show")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "override bot1:")
}

func TestSettingsSetRejectsInvalidDelayRange(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "settings", "set", "--follow-delay", "90-30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestFollowRequiresAccountFlag(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "follow", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"account\" not set")
}

func TestFollowRequiresTargets(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "follow", "--account", "bot1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no targets given")
}

func TestFollowUnknownAccount(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "follow", "--account", "ghost", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestFollowWithoutTerminalUsesPlainOutput(t *testing.T) {
	home := t.TempDir()
	platform := newFakePlatform(t)
	defer platform.Close()
	t.Setenv("VULTURE_API_URL", platform.URL)

	_, _, err := executeCLI(t, home, "account", "add", "bot1", "--password", "hunter2")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "settings", "set", "--follow-delay", "0-0", "--unfollow-delay", "0-0")
	require.NoError(t, err)

	// no --plain flag: the output buffer is not a terminal, so the
	// line-based renderer runs instead of the live view
	stdout, _, err := executeCLI(t, home, "follow", "--account", "bot1", "alice", "bob")
	require.NoError(t, err)
	assert.Contains(t, stdout, "following as bot1: 1/2")
	assert.Contains(t, stdout, "following as bot1: 2/2")
	assert.Contains(t, stdout, "completed: 2 succeeded, 0 failed, 0 skipped")
}

func TestLiveCapableRejectsNonTerminalWriters(t *testing.T) {
	assert.False(t, liveCapable(&bytes.Buffer{}))

	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer func() { _ = devNull.Close() }()
	assert.False(t, liveCapable(devNull))
}

func newFakePlatform(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "cli-token"})
	})
	mux.HandleFunc("GET /v1/users/by-name/{name}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": r.PathValue("name") + "-id"})
	})
	mux.HandleFunc("POST /v1/relationships/{id}/follow", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return httptest.NewServer(mux)
}

func TestReportPrintsEmptySummary(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "report")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No activity recorded.")
}

func TestResolveTargetsMergesFileAndArgs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.csv")
	require.NoError(t, os.WriteFile(path, []byte("username\n# a comment\nalice\nbob,extra\n\ncarol\nalice\n"), 0o644))

	targets, err := resolveTargets([]string{"dave", "alice"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dave", "alice", "bob", "carol"}, targets)
}

package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFollowFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping binary smoke test in short mode")
	}

	home := t.TempDir()
	binaryPath := buildBinary(t)
	platform := newFakePlatform(t)
	defer platform.Close()

	_, stderr, err := runVulture(t, binaryPath, home, platform.URL,
		"account", "add", "bot1", "--name", "Primary", "--password", "hunter2")
	require.NoError(t, err, "stderr: %s", stderr)

	_, stderr, err = runVulture(t, binaryPath, home, platform.URL,
		"settings", "set", "--follow-delay", "0-0", "--unfollow-delay", "0-0")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runVulture(t, binaryPath, home, platform.URL, "login", "bot1")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "account bot1 is authenticated")

	stdout, stderr, err = runVulture(t, binaryPath, home, platform.URL,
		"follow", "--account", "bot1", "--plain", "alice", "bob")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "completed: 2 succeeded, 0 failed, 0 skipped")

	stdout, stderr, err = runVulture(t, binaryPath, home, platform.URL, "status", "--account", "bot1")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Primary (bot1)")
	assert.Contains(t, stdout, "2/100 used")

	// the audit trail landed in the monthly CSV
	matches, err := filepath.Glob(filepath.Join(home, ".vulture", "logs", "actions_*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	audit, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(audit), "alice")
	assert.Contains(t, string(audit), "bob")
	assert.Contains(t, string(audit), "succeeded")
}

func newFakePlatform(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "smoke-token"})
	})
	mux.HandleFunc("GET /v1/users/by-name/{name}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": r.PathValue("name") + "-id"})
	})
	mux.HandleFunc("POST /v1/relationships/{id}/follow", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return httptest.NewServer(mux)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "vulture-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/vulture")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build vulture binary: %s", string(output))
	return binaryPath
}

func runVulture(t *testing.T, binaryPath, home, apiURL string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home, "VULTURE_API_URL="+apiURL)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

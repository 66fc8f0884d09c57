//go:build e2e

// Package e2e drives the built davnotes binary against a WebDAV server. By
// default the suite starts cmd/davserve over a temp directory; set
// DAVNOTES_E2E_URL, DAVNOTES_E2E_USERNAME and DAVNOTES_E2E_PASSWORD to run
// against a real server instead. The base folder (DAVNOTES_E2E_BASE_PATH,
// default /obsidian) must exist and should be a scratch folder: uploaded
// test files are left in place.
package e2e

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	binaryPath string
	serverURL  string
	username   string
	password   string
	basePath   string
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	tmpDir, err := os.MkdirTemp("", "davnotes-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "davnotes")
	if err := build(binaryPath, "."); err != nil {
		fmt.Fprintf(os.Stderr, "building davnotes: %v\n", err)
		return 1
	}

	// Keep the user's real config and credentials out of reach.
	for _, env := range []string{"HOME", "XDG_CONFIG_HOME", "XDG_DATA_HOME"} {
		os.Setenv(env, filepath.Join(tmpDir, "home"))
	}

	os.Unsetenv("DAVNOTES_CONFIG")
	os.Unsetenv("DAVNOTES_CREDENTIALS")

	basePath = os.Getenv("DAVNOTES_E2E_BASE_PATH")
	if basePath == "" {
		basePath = "/obsidian"
	}

	os.Setenv("DAVNOTES_BASE_PATH", basePath)

	serverURL = os.Getenv("DAVNOTES_E2E_URL")
	username = os.Getenv("DAVNOTES_E2E_USERNAME")
	password = os.Getenv("DAVNOTES_E2E_PASSWORD")

	if serverURL == "" {
		stop, err := startLocalServer(tmpDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "starting davserve: %v\n", err)
			return 1
		}
		defer stop()
	}

	return m.Run()
}

func build(out, pkg string) error {
	cmd := exec.Command("go", "build", "-o", out, pkg)
	cmd.Dir = findModuleRoot()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// startLocalServer builds and runs cmd/davserve on a free port.
func startLocalServer(tmpDir string) (func(), error) {
	serveBin := filepath.Join(tmpDir, "davserve")
	if err := build(serveBin, "./cmd/davserve"); err != nil {
		return nil, err
	}

	root := filepath.Join(tmpDir, "dav")
	if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(basePath)), 0o755); err != nil {
		return nil, err
	}

	username, password = "alice", "secret"

	cmd := exec.Command(serveBin, "--addr", "127.0.0.1:0", "--root", root, "--user", username, "--pass", password)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	stop := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}

	line, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil {
		stop()
		return nil, fmt.Errorf("reading listen address: %w", err)
	}

	serverURL = strings.TrimSpace(strings.TrimPrefix(line, "listening on "))

	return stop, nil
}

// findModuleRoot walks up from the current dir to find go.mod.
func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ".."
		}

		dir = parent
	}
}

func runCLI(t *testing.T, args ...string) (string, string) {
	t.Helper()

	stdout, stderr, err := tryCLI(args...)
	if err != nil {
		t.Fatalf("CLI command %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout, stderr)
	}

	return stdout, stderr
}

func tryCLI(args ...string) (string, string, error) {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "DAVNOTES_PASSWORD="+password)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

func TestE2E_RoundTrip(t *testing.T) {
	testFile := fmt.Sprintf("davnotes-e2e-%d.md", time.Now().UnixNano())
	testContent := []byte("Hello from the davnotes e2e test!\n")

	t.Cleanup(func() { _, _, _ = tryCLI("logout") })

	t.Run("connect", func(t *testing.T) {
		_, stderr := runCLI(t, "connect", serverURL, "-u", username)
		assert.Contains(t, stderr, "Connected to")
	})

	t.Run("status", func(t *testing.T) {
		stdout, _ := runCLI(t, "status", "--json")

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, true, out["connected"])
		assert.Equal(t, basePath, out["base_path"])
		assert.NotContains(t, stdout, password)
	})

	t.Run("put", func(t *testing.T) {
		local := filepath.Join(t.TempDir(), testFile)
		require.NoError(t, os.WriteFile(local, testContent, 0o644))

		_, stderr := runCLI(t, "put", local)
		assert.Contains(t, stderr, "Uploaded")
	})

	t.Run("ls", func(t *testing.T) {
		stdout, _ := runCLI(t, "ls")
		assert.Contains(t, stdout, "NAME")
		assert.Contains(t, stdout, testFile)
	})

	t.Run("cat", func(t *testing.T) {
		stdout, _ := runCLI(t, "cat", "../../"+testFile)
		assert.Equal(t, string(testContent), stdout)
	})

	t.Run("pull", func(t *testing.T) {
		dst := t.TempDir()
		runCLI(t, "pull", "/", dst)

		got, err := os.ReadFile(filepath.Join(dst, testFile))
		require.NoError(t, err)
		assert.Equal(t, testContent, got)
	})

	t.Run("logout", func(t *testing.T) {
		runCLI(t, "logout")

		_, _, err := tryCLI("ls")
		require.Error(t, err, "ls needs a saved connection")
	})
}

func TestE2E_WrongPassword(t *testing.T) {
	_, _, err := tryCLI("connect", serverURL, "-u", username, "-p", password+"-wrong")
	require.Error(t, err)

	stdout, _ := runCLI(t, "status", "--json", "--offline")
	assert.Contains(t, stdout, `"record": "absent"`)
}

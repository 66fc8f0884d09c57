package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/davnotes/internal/credstore"
	"github.com/tonimelisma/davnotes/internal/dav"
	"github.com/tonimelisma/davnotes/internal/session"
	"github.com/tonimelisma/davnotes/testutil"
)

func newTestShell(t *testing.T) (*shell, *testutil.DAVServer, *bytes.Buffer) {
	t.Helper()

	srv := testutil.NewDAVServer(t, "alice", "secret", "/obsidian/notes/daily")
	srv.WriteFile(t, "/obsidian/notes/todo.md", []byte("- [ ] ship"))
	srv.WriteFile(t, "/obsidian/readme.md", []byte("hello"))

	d := session.ClientDialer(dav.Options{Timeout: 5 * time.Second})
	s := session.New(context.Background(), d, session.Options{Store: credstore.NewMemStore()})
	require.True(t, s.Connect(context.Background(), srv.URL, "alice", "secret"))

	var out bytes.Buffer

	return &shell{s: s, out: &out}, srv, &out
}

func runScript(t *testing.T, sh *shell, lines ...string) {
	t.Helper()

	err := sh.run(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"))
	require.NoError(t, err)
}

func TestShell_CdAndPwd(t *testing.T) {
	sh, _, out := newTestShell(t)

	runScript(t, sh, "cd notes", "pwd", "cd daily", "pwd", "cd ..", "pwd", "cd", "pwd")

	assert.Contains(t, out.String(), "/notes\n")
	assert.Contains(t, out.String(), "/notes/daily\n")
	assert.Equal(t, "/obsidian", sh.s.CurrentPath())
}

func TestShell_CdCannotLeaveBaseFolder(t *testing.T) {
	sh, _, _ := newTestShell(t)

	runScript(t, sh, "cd ../../..")

	assert.Equal(t, "/obsidian", sh.s.CurrentPath())
}

func TestShell_LsOtherFolderKeepsCurrent(t *testing.T) {
	sh, _, out := newTestShell(t)

	runScript(t, sh, "ls notes")

	assert.Contains(t, out.String(), "todo.md")
	assert.Equal(t, "/obsidian", sh.s.CurrentPath())
}

func TestShell_LsMissingFolderKeepsCurrent(t *testing.T) {
	sh, _, out := newTestShell(t)

	runScript(t, sh, "cd notes", "ls missing", "pwd")

	assert.Contains(t, out.String(), "error:")
	assert.Equal(t, "/obsidian/notes", sh.s.CurrentPath())
	assert.Contains(t, out.String(), "/notes\n")
}

func TestShell_LsCurrentUsesListing(t *testing.T) {
	sh, _, out := newTestShell(t)

	runScript(t, sh, "ls")

	assert.Contains(t, out.String(), "readme.md")
	assert.Contains(t, out.String(), "notes/")
}

func TestShell_CatRelativeToCurrent(t *testing.T) {
	sh, _, out := newTestShell(t)

	runScript(t, sh, "cd notes", "cat todo.md")

	assert.Contains(t, out.String(), "- [ ] ship\n")
}

func TestShell_Put(t *testing.T) {
	sh, srv, _ := newTestShell(t)

	local := filepath.Join(t.TempDir(), "new.md")
	require.NoError(t, os.WriteFile(local, []byte("fresh"), 0o644))

	runScript(t, sh, "cd notes", "put "+local)

	assert.Equal(t, "fresh", string(srv.ReadFile(t, "/obsidian/notes/new.md")))
}

func TestShell_ErrorsDoNotStopTheShell(t *testing.T) {
	sh, _, out := newTestShell(t)

	runScript(t, sh, "frobnicate", "cat missing.md", "pwd")

	assert.Contains(t, out.String(), `unknown command "frobnicate"`)
	assert.Contains(t, out.String(), "error: dav: read /obsidian/missing.md")
	assert.Contains(t, out.String(), "/\n")
}

func TestShell_ResetThenReconnectNeedsSavedRecord(t *testing.T) {
	sh, _, out := newTestShell(t)

	runScript(t, sh, "reset", "reconnect")

	// Connect saved the record, so reconnect succeeds.
	assert.Contains(t, out.String(), "connected to ")
	assert.True(t, sh.s.Connected())
}

func TestShell_ExitStopsReading(t *testing.T) {
	sh, _, out := newTestShell(t)

	runScript(t, sh, "exit", "frobnicate")

	assert.NotContains(t, out.String(), "frobnicate")
}

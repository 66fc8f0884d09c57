package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.Path)
	ew.printf("log_level  = %q\n", r.LogLevel)
	ew.printf("log_format = %q\n\n", r.LogFormat)

	ew.printf("[session]\n")
	if r.Session.BasePath == "" {
		ew.printf("  base_path    = \"\"  # saved connection, else /obsidian\n")
	} else {
		ew.printf("  base_path    = %q\n", r.Session.BasePath)
	}
	ew.printf("  hidden_files = [%s]\n\n", joinQuoted(r.Session.HiddenFiles))

	ew.printf("[credentials]\n")
	ew.printf("  backend = %q\n", r.Credentials.Backend)
	ew.printf("  path    = %q\n\n", r.CredentialsPath)

	ew.printf("[network]\n")
	ew.printf("  timeout = %q\n", r.Network.Timeout)

	if r.Network.UserAgent != "" {
		ew.printf("  user_agent = %q\n", r.Network.UserAgent)
	}

	ew.printf("\n[transfers]\n")
	ew.printf("  parallel_downloads = %d\n", r.Transfers.ParallelDownloads)
	ew.printf("  max_file_size      = %q\n", r.Transfers.MaxFileSize)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// joinQuoted formats a string slice as comma-separated quoted values.
func joinQuoted(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}

	return strings.Join(quoted, ", ")
}

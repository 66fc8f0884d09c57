package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tonimelisma/davnotes/internal/dav"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
	sizeTB = 1024 * 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeTB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/float64(sizeTB))
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatTime returns a compact timestamp for display. Servers that omit
// getlastmodified yield the zero time, shown as "-".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	if t.Year() == time.Now().Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// entryJSON is the JSON output schema for a single listing entry.
type entryJSON struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDir       bool   `json:"is_dir"`
	Size        int64  `json:"size"`
	ModifiedAt  string `json:"modified_at,omitempty"`
	ETag        string `json:"etag,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

func printEntriesJSON(w io.Writer, entries []dav.Entry) error {
	out := make([]entryJSON, 0, len(entries))

	for i := range entries {
		e := &entries[i]

		item := entryJSON{
			Name:        e.Name,
			Path:        e.Path,
			IsDir:       e.IsDir(),
			Size:        e.Size,
			ETag:        e.Meta["etag"],
			ContentType: e.Meta["content_type"],
		}

		if !e.ModTime.IsZero() {
			item.ModifiedAt = e.ModTime.UTC().Format(time.RFC3339)
		}

		out = append(out, item)
	}

	return printJSON(w, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// printEntriesTable prints directories first, then files, each alphabetical.
func printEntriesTable(w io.Writer, entries []dav.Entry) {
	sorted := make([]dav.Entry, len(entries))
	copy(sorted, entries)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].IsDir() != sorted[j].IsDir() {
			return sorted[i].IsDir()
		}

		return sorted[i].Name < sorted[j].Name
	})

	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := make([][]string, 0, len(sorted))

	for i := range sorted {
		name := sorted[i].Name
		size := formatSize(sorted[i].Size)

		if sorted[i].IsDir() {
			name += "/"
			size = "-"
		}

		rows = append(rows, []string{name, size, formatTime(sorted[i].ModTime)})
	}

	printTable(w, headers, rows)
}

func printEntries(w io.Writer, entries []dav.Entry, asJSON bool) error {
	if asJSON {
		return printEntriesJSON(w, entries)
	}

	printEntriesTable(w, entries)

	return nil
}

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/davnotes/internal/dav"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"bytes", 512, "512 B"},
		{"kilobytes", 1536, "1.5 KB"},
		{"megabytes", 5242880, "5.0 MB"},
		{"gigabytes", 1610612736, "1.5 GB"},
		{"terabytes", 1099511627776, "1.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSize(tt.bytes))
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	sameYear := time.Date(now.Year(), time.March, 15, 10, 30, 0, 0, time.UTC)
	diffYear := time.Date(2020, time.December, 25, 8, 0, 0, 0, time.UTC)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(sameYear)
		assert.Contains(t, result, "Mar")
		assert.Contains(t, result, "15")
		assert.Contains(t, result, "10:30")
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(diffYear)
		assert.Contains(t, result, "Dec")
		assert.Contains(t, result, "2020")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Equal(t, "-", formatTime(time.Time{}))
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := [][]string{
		{"file.txt", "1.2 MB", "Jan 15 10:30"},
		{"folder/", "-", "Feb  1 09:00"},
	}

	printTable(&buf, headers, rows)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME      SIZE"))
	assert.True(t, strings.HasPrefix(lines[1], "file.txt  1.2 MB"))
	assert.Equal(t, lines[0], strings.TrimRight(lines[0], " "), "no trailing padding")
}

// --- entry output ---

func sampleEntries() []dav.Entry {
	mod := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

	return []dav.Entry{
		{Name: "zeta.md", Path: "/obsidian/zeta.md", Kind: dav.KindFile, Size: 10, ModTime: mod,
			Meta: map[string]string{"etag": `"abc"`}},
		{Name: "notes", Path: "/obsidian/notes", Kind: dav.KindDirectory},
		{Name: "alpha.md", Path: "/obsidian/alpha.md", Kind: dav.KindFile, Size: 2048},
	}
}

func TestPrintEntriesTable_DirectoriesFirst(t *testing.T) {
	var buf bytes.Buffer

	printEntriesTable(&buf, sampleEntries())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "notes/"))
	assert.True(t, strings.HasPrefix(lines[2], "alpha.md"))
	assert.Contains(t, lines[2], "2.0 KB")
	assert.True(t, strings.HasPrefix(lines[3], "zeta.md"))
}

func TestPrintEntriesTable_DoesNotReorderInput(t *testing.T) {
	entries := sampleEntries()

	printEntriesTable(&bytes.Buffer{}, entries)

	assert.Equal(t, "zeta.md", entries[0].Name)
}

func TestPrintEntries_JSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printEntries(&buf, sampleEntries(), true))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)

	assert.Equal(t, "zeta.md", got[0]["name"])
	assert.Equal(t, "2024-05-01T12:00:00Z", got[0]["modified_at"])
	assert.Equal(t, `"abc"`, got[0]["etag"])
	assert.Equal(t, true, got[1]["is_dir"])
	assert.NotContains(t, got[2], "modified_at")
}

func TestPrintEntries_JSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printEntries(&buf, nil, true))
	assert.Equal(t, "[]\n", buf.String())
}

package logging

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, dir string) []AccessEntry {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "access-*.jsonl"))
	require.NoError(t, err)

	var entries []AccessEntry
	for _, name := range matches {
		f, err := os.Open(name)
		require.NoError(t, err)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var entry AccessEntry
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry), "bad line in %s: %s", name, scanner.Text())
			entries = append(entries, entry)
		}
		require.NoError(t, scanner.Err())
		f.Close()
	}
	return entries
}

func TestAccessLogger_WritesEntries(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "access-%s.jsonl")

	logger, err := NewAccessLogger(template, 1024*1024, 3, 16, 50*time.Millisecond)
	require.NoError(t, err)

	logger.Log(AccessEntry{
		Method:     http.MethodPost,
		Path:       "/v1/chat/completions",
		Status:     http.StatusOK,
		AccountID:  "acct-1",
		DurationMS: 12,
	})
	logger.Log(AccessEntry{
		Method:     http.MethodPost,
		Path:       "/v1/chat/completions",
		Status:     http.StatusUnauthorized,
		DurationMS: 3,
	})
	logger.Shutdown()

	entries := readEntries(t, dir)
	require.Len(t, entries, 2)
	assert.Equal(t, "/v1/chat/completions", entries[0].Path)
	assert.Equal(t, http.StatusOK, entries[0].Status)
	assert.Equal(t, "acct-1", entries[0].AccountID)
	assert.False(t, entries[0].Timestamp.IsZero(), "timestamp was not filled in")
	assert.Equal(t, http.StatusUnauthorized, entries[1].Status)
}

func TestAccessLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "access-%s.jsonl")

	// Tiny size cap so a handful of entries forces at least one rotation.
	logger, err := NewAccessLogger(template, 256, 10, 64, time.Second)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		logger.Log(AccessEntry{
			Method:     http.MethodPost,
			Path:       "/v1/chat/completions",
			Status:     http.StatusOK,
			AccountID:  strings.Repeat("x", 32),
			DurationMS: int64(i),
		})
	}
	logger.Shutdown()

	matches, err := filepath.Glob(filepath.Join(dir, "access-*.jsonl"))
	require.NoError(t, err)
	assert.NotEmpty(t, matches)

	// Every file respects the JSONL format even across rotations.
	entries := readEntries(t, dir)
	assert.NotEmpty(t, entries)
}

func TestAccessLogger_DropsWhenFull(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "access-%s.jsonl")

	logger, err := NewAccessLogger(template, 1024*1024, 3, 1, time.Hour)
	require.NoError(t, err)

	// Flood a single-slot buffer. Log must never block regardless of how
	// fast the writer drains.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			logger.Log(AccessEntry{Method: http.MethodGet, Path: "/health", Status: http.StatusOK})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Log() blocked on a full buffer")
	}
	logger.Shutdown()
}

func TestAccessLogger_ShutdownIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewAccessLogger(filepath.Join(dir, "access-%s.jsonl"), 1024, 3, 4, time.Second)
	require.NoError(t, err)

	logger.Shutdown()
	logger.Shutdown()
}

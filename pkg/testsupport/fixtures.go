// Package testsupport holds helpers shared by the package tests.
package testsupport

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
)

// Fixture loads testdata/name of the calling package as a file-backed
// document.
func Fixture(t testing.TB, name string) pkgopenapi.Document {
	t.Helper()
	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return Inline(t, path, string(raw))
}

// Inline wraps an in-test document, attributing it to a file named name.
func Inline(t testing.TB, name, raw string) pkgopenapi.Document {
	t.Helper()
	doc, err := pkgopenapi.NewDocument(pkgopenapi.SourceFromFile(name), []byte(raw))
	if err != nil {
		t.Fatalf("document %s: %v", name, err)
	}
	return doc
}

// DiscardLogger drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Context returns a context cancelled when the test ends.
func Context(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

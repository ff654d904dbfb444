package loader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-serializergen/internal/openapi/loader"
	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
)

const payload = `openapi: 3.0.3
info: {title: Tiny, version: "1.0"}
paths: {}
`

func TestLoadFromFileAndFS(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	files := fstest.MapFS{"specs/tiny.yaml": &fstest.MapFile{Data: []byte(payload)}}
	l := loader.New(pkgopenapi.NewLoaderOptions(pkgopenapi.WithFileSystem(files)))

	doc, err := l.Load(ctx, pkgopenapi.SourceFromFile(path))
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if diff := cmp.Diff(payload, string(doc.Raw())); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	doc, err = l.Load(ctx, pkgopenapi.SourceFromFS("specs/tiny.yaml"))
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	if doc.Location() != "specs/tiny.yaml" || doc.Source().Kind() != pkgopenapi.SourceKindFS {
		t.Fatalf("unexpected source %v", doc.Source())
	}

	if _, err := l.Load(ctx, pkgopenapi.SourceFromFS("missing.yaml")); err == nil {
		t.Fatalf("expected error for missing fs entry")
	}
}

func TestLoadFromHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	ctx := context.Background()
	disabled := loader.New(pkgopenapi.NewLoaderOptions())
	if _, err := disabled.Load(ctx, pkgopenapi.SourceFromURL(server.URL)); err == nil {
		t.Fatalf("expected http to be disabled by default")
	}

	l := loader.New(pkgopenapi.NewLoaderOptions(pkgopenapi.WithHTTPClient(server.Client())))
	doc, err := l.Load(ctx, pkgopenapi.SourceFromURL(server.URL+"/spec.yaml"))
	if err != nil {
		t.Fatalf("load http: %v", err)
	}
	if string(doc.Raw()) != payload {
		t.Fatalf("unexpected payload %q", doc.Raw())
	}

	_, err = l.Load(ctx, pkgopenapi.SourceFromURL(server.URL+"/missing"))
	if err == nil || !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestLoadHonoursLimitsAndContext(t *testing.T) {
	files := fstest.MapFS{"big.yaml": &fstest.MapFile{Data: []byte(payload)}}
	l := loader.New(pkgopenapi.NewLoaderOptions(
		pkgopenapi.WithFileSystem(files),
		pkgopenapi.WithMaxDocumentBytes(8),
	))
	if _, err := l.Load(context.Background(), pkgopenapi.SourceFromFS("big.yaml")); err == nil {
		t.Fatalf("expected size limit error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx, pkgopenapi.SourceFromFS("big.yaml")); err == nil {
		t.Fatalf("expected cancelled context error")
	}
	if _, err := l.Load(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
}

func TestLoadRejectsNonDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("\n<!doctype html><title>Sign in</title>"))
	}))
	defer server.Close()

	files := fstest.MapFS{"blank.yaml": &fstest.MapFile{Data: []byte("  \n")}}
	l := loader.New(pkgopenapi.NewLoaderOptions(
		pkgopenapi.WithFileSystem(files),
		pkgopenapi.WithHTTPClient(server.Client()),
	))
	ctx := context.Background()

	_, err := l.Load(ctx, pkgopenapi.SourceFromURL(server.URL+"/openapi.yaml"))
	if err == nil || !strings.Contains(err.Error(), "markup") {
		t.Fatalf("expected markup error, got %v", err)
	}
	_, err = l.Load(ctx, pkgopenapi.SourceFromFS("blank.yaml"))
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty document error, got %v", err)
	}
}

func TestParseSource(t *testing.T) {
	src, err := pkgopenapi.ParseSource("https://example.com/openapi.json")
	if err != nil || src.Kind() != pkgopenapi.SourceKindURL {
		t.Fatalf("expected url source, got %v err=%v", src, err)
	}
	src, err = pkgopenapi.ParseSource("./specs/../openapi.yaml")
	if err != nil || src.Kind() != pkgopenapi.SourceKindFile || src.Location() != "openapi.yaml" {
		t.Fatalf("expected cleaned file source, got %v err=%v", src, err)
	}
	if _, err := pkgopenapi.ParseSource("  "); err == nil {
		t.Fatalf("expected error for empty source")
	}
}

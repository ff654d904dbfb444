// Package loader reads OpenAPI documents from disk, an fs.FS or HTTP.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
)

// Loader implements pkgopenapi.Loader.
type Loader struct {
	files    fs.FS
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

var _ pkgopenapi.Loader = (*Loader)(nil)

// New builds a Loader. URL sources are only served when a client is supplied
// or HTTP fallback is enabled.
func New(options pkgopenapi.LoaderOptions) pkgopenapi.Loader {
	l := &Loader{
		files:    options.FileSystem,
		timeout:  options.RequestTimeout,
		maxBytes: options.MaxDocumentBytes,
	}
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if l.timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = l.timeout
		}
		l.client = &clone
	case options.AllowHTTPFallback:
		l.client = &http.Client{Timeout: l.timeout}
	}
	return l
}

// Load reads the payload behind src and checks it looks like a JSON or YAML
// document before wrapping it.
func (l *Loader) Load(ctx context.Context, src pkgopenapi.Source) (pkgopenapi.Document, error) {
	if src == nil {
		return pkgopenapi.Document{}, errors.New("openapi loader: source is nil")
	}
	data, err := l.fetch(ctx, src)
	if err != nil {
		return pkgopenapi.Document{}, err
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return pkgopenapi.Document{}, fmt.Errorf("openapi loader: %s exceeds %d bytes", src.Location(), l.maxBytes)
	}
	if err := sniff(src, data); err != nil {
		return pkgopenapi.Document{}, err
	}
	return pkgopenapi.NewDocument(src, data)
}

func (l *Loader) fetch(ctx context.Context, src pkgopenapi.Source) ([]byte, error) {
	switch src.Kind() {
	case pkgopenapi.SourceKindFile:
		return loadFile(ctx, src.Location())
	case pkgopenapi.SourceKindFS:
		return loadFromFS(ctx, l.files, src.Location())
	case pkgopenapi.SourceKindURL:
		if l.client == nil {
			return nil, errors.New("openapi loader: http support disabled")
		}
		return loadHTTP(ctx, l.client, src.Location(), l.timeout, l.maxBytes)
	}
	return nil, fmt.Errorf("openapi loader: unsupported source kind %q", src.Kind())
}

// sniff rejects empty payloads and markup, typically an HTML error page
// served in place of the document.
func sniff(src pkgopenapi.Source, data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("openapi loader: %s is empty", src.Location())
	}
	if trimmed[0] == '<' {
		return fmt.Errorf("openapi loader: %s is markup, not a JSON or YAML document", src.Location())
	}
	return nil
}

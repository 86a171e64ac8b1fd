// Package source loads lesson text from local files or any afs storage URL.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/viant/afs"
	"go.uber.org/zap"

	"quiz-pipeline/internal/domain"
)

// AFSLoader implements domain.SourceLoader
type AFSLoader struct {
	fs     afs.Service
	logger *zap.Logger
}

func NewAFSLoader(fs afs.Service, logger *zap.Logger) *AFSLoader {
	if fs == nil {
		fs = afs.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AFSLoader{fs: fs, logger: logger}
}

// Load reads location and returns its text. PDF documents are converted to
// plain text; anything else must be UTF-8.
func (l *AFSLoader) Load(ctx context.Context, location string) (string, error) {
	URL, err := normalizeLocation(location)
	if err != nil {
		return "", err
	}

	exists, err := l.fs.Exists(ctx, URL)
	if err != nil || !exists {
		l.logger.Warn("Source not found", zap.String("location", location), zap.Error(err))
		return "", fmt.Errorf("%s: %w", location, domain.ErrInputNotFound)
	}

	data, err := l.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", location, err)
	}

	if isPDF(URL, data) {
		text, err := extractPDFText(data)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from %s: %w", location, err)
		}
		return text, nil
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", location)
	}
	// a UTF-8 byte order mark is not part of the text
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

// normalizeLocation turns bare paths into absolute file URLs
func normalizeLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("empty location: %w", domain.ErrInputNotFound)
	}
	if strings.Contains(location, "://") {
		return location, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", location, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func isPDF(URL string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(URL), ".pdf") || bytes.HasPrefix(data, []byte("%PDF-"))
}

func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var _ domain.SourceLoader = (*AFSLoader)(nil)

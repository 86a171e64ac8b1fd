package source

import (
	"context"
	"path"
	"strings"

	"quiz-pipeline/internal/domain"
)

// RootedLoader resolves relative locations below a fixed root before
// delegating to another loader. Absolute paths, URLs and parent segments
// are rejected.
type RootedLoader struct {
	inner domain.SourceLoader
	root  string
}

// NewRootedLoader confines inner to root. An empty root yields a loader
// that rejects every location.
func NewRootedLoader(inner domain.SourceLoader, root string) (*RootedLoader, error) {
	if strings.TrimSpace(root) == "" {
		return &RootedLoader{inner: inner}, nil
	}
	URL, err := normalizeLocation(root)
	if err != nil {
		return nil, err
	}
	return &RootedLoader{inner: inner, root: strings.TrimRight(URL, "/")}, nil
}

func (l *RootedLoader) Load(ctx context.Context, location string) (string, error) {
	URL, err := l.Resolve(location)
	if err != nil {
		return "", err
	}
	return l.inner.Load(ctx, URL)
}

// Resolve maps location to a URL below the root
func (l *RootedLoader) Resolve(location string) (string, error) {
	if l.root == "" {
		return "", domain.NewInvalidInputError("Loading sources is disabled on this server")
	}

	location = strings.TrimSpace(location)
	if location == "" {
		return "", domain.NewInvalidInputError("Source location is empty")
	}
	if strings.ContainsAny(location, ":\\") || strings.HasPrefix(location, "/") {
		return "", domain.NewInvalidInputError("Source must be a relative path")
	}
	for _, segment := range strings.Split(location, "/") {
		if segment == ".." {
			return "", domain.NewInvalidInputError("Source must not leave the source root")
		}
	}

	cleaned := path.Clean(location)
	if cleaned == "." {
		return "", domain.NewInvalidInputError("Source must name a file")
	}
	return l.root + "/" + cleaned, nil
}

var _ domain.SourceLoader = (*RootedLoader)(nil)

// Package metadata resolves the newest published agent version from the
// repository's maven-metadata.xml.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// DefaultURL is the agent's metadata document in the Thundra release repository.
const DefaultURL = "https://repo.thundra.io/service/local/repositories/thundra-releases/content/io/thundra/agent/thundra-agent-bootstrap/maven-metadata.xml"

var ErrVersionNotFound = errors.New("cannot extract agent version from metadata")

// Getter fetches a URL and returns the response body.
type Getter interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

type Resolver struct {
	getter Getter
	url    string
	logger *zap.Logger
}

func NewResolver(getter Getter, url string, logger *zap.Logger) *Resolver {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{getter: getter, url: url, logger: logger}
}

// LatestVersion returns versioning/latest, falling back to versioning/release.
func (r *Resolver) LatestVersion(ctx context.Context) (string, error) {
	body, err := r.getter.Get(ctx, r.url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch agent metadata: %w", err)
	}
	defer body.Close()

	version, err := parseLatest(body)
	if err != nil {
		return "", err
	}
	r.logger.Info("Resolved latest agent version", zap.String("version", version))
	return version, nil
}

func parseLatest(r io.Reader) (string, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return "", fmt.Errorf("failed to parse agent metadata: %w", err)
	}
	for _, path := range []string{"./metadata/versioning/latest", "./metadata/versioning/release"} {
		if el := doc.FindElement(path); el != nil {
			if v := strings.TrimSpace(el.Text()); v != "" {
				return v, nil
			}
		}
	}
	return "", ErrVersionNotFound
}

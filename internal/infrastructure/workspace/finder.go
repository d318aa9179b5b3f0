// Package workspace discovers Maven project descriptors under a directory tree.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// DescriptorName is the file name of a Maven project descriptor.
const DescriptorName = "pom.xml"

// DescriptorFinder walks a workspace for pom.xml files.
type DescriptorFinder struct {
	skipDirs map[string]bool
	logger   *zap.Logger
}

// NewDescriptorFinder skips VCS metadata, build output and node_modules.
func NewDescriptorFinder(logger *zap.Logger) *DescriptorFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DescriptorFinder{
		skipDirs: map[string]bool{
			".git":         true,
			".svn":         true,
			".hg":          true,
			"target":       true,
			"node_modules": true,
		},
		logger: logger,
	}
}

// SetSkipDirs replaces the directory names that are never descended into.
func (f *DescriptorFinder) SetSkipDirs(names []string) {
	f.skipDirs = make(map[string]bool, len(names))
	for _, n := range names {
		f.skipDirs[n] = true
	}
}

// Find returns every descriptor under root in lexical path order.
func (f *DescriptorFinder) Find(ctx context.Context, root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && f.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == DescriptorName && d.Type().IsRegular() {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace %s: %w", root, err)
	}

	sort.Strings(found)
	f.logger.Debug("Scanned workspace", zap.String("root", root), zap.Int("descriptors", len(found)))
	return found, nil
}

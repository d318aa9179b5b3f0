// Package instrument injects the Foresight agent into the test plugins
// declared by Maven project descriptors.
//
// A Checker targets one plugin (Surefire or Failsafe) and walks every
// scope that can declare it: the top-level build and its plugin
// management, and each profile's build and plugin management. Each
// invocation loads the descriptor fresh from its store and writes it back
// only when an argLine was edited.
package instrument

import (
	"errors"

	"go.uber.org/zap"

	"foresight.thundra.io/cli/internal/core/pom"
)

// Plugin keys of the Maven test plugins.
const (
	SurefirePluginKey = "org.apache.maven.plugins:maven-surefire-plugin"
	FailsafePluginKey = "org.apache.maven.plugins:maven-failsafe-plugin"
)

// DescriptorStore loads and persists descriptors by path. Load failures
// should match pom.ErrDescriptorParse and Save failures
// pom.ErrDescriptorWrite; other errors are wrapped accordingly.
type DescriptorStore interface {
	Load(path string) (*pom.Descriptor, error)
	Save(path string, d *pom.Descriptor) error
}

// Checker instruments a single plugin across all scopes of a descriptor.
// It is not safe for concurrent use.
type Checker struct {
	pluginKey    string
	name         string
	store        DescriptorStore
	logger       *zap.Logger
	instrumented bool
}

// NewChecker creates a checker for the plugin identified by pluginKey.
// name is used in logs and reports.
func NewChecker(pluginKey, name string, store DescriptorStore, logger *zap.Logger) (*Checker, error) {
	if _, _, err := ParsePluginKey(pluginKey); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		pluginKey: pluginKey,
		name:      name,
		store:     store,
		logger:    logger.With(zap.String("plugin", name)),
	}, nil
}

// NewSurefireChecker returns a checker for maven-surefire-plugin.
func NewSurefireChecker(store DescriptorStore, logger *zap.Logger) *Checker {
	return mustNewChecker(SurefirePluginKey, "Surefire", store, logger)
}

// NewFailsafeChecker returns a checker for maven-failsafe-plugin.
func NewFailsafeChecker(store DescriptorStore, logger *zap.Logger) *Checker {
	return mustNewChecker(FailsafePluginKey, "Failsafe", store, logger)
}

func mustNewChecker(pluginKey, name string, store DescriptorStore, logger *zap.Logger) *Checker {
	c, err := NewChecker(pluginKey, name, store, logger)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the display name of the target plugin.
func (c *Checker) Name() string { return c.name }

// PluginKey returns the groupId:artifactId of the target plugin.
func (c *Checker) PluginKey() string { return c.pluginKey }

// Instrumented reports whether any invocation of this checker persisted an
// edit.
func (c *Checker) Instrumented() bool { return c.instrumented }

// CheckPom instruments the top-level build of the descriptor at path.
// With addIfMissing a missing build section and plugin declaration are
// created, and the same flag applies to the plugin-management section.
// It reports whether the descriptor was edited and written back.
func (c *Checker) CheckPom(path, agentArgs string, addIfMissing bool) (bool, error) {
	logger := c.logger.With(zap.String("pom", path), zap.String("check", "pom"))

	d, err := c.load(logger, path)
	if err != nil {
		return false, err
	}

	build := d.Build()
	if build == nil && addIfMissing {
		logger.Warn("No build section found, creating one before instrumentation")
		build = d.EnsureBuild()
	}
	if build == nil {
		logger.Warn("No build section found, nothing to instrument")
		return false, nil
	}
	logger.Debug("Found build section")

	edited, err := c.instrumentBuild(logger, build, agentArgs, addIfMissing)
	if err != nil {
		return false, err
	}
	if !edited {
		logger.Info("Plugin configuration not found, descriptor left unchanged")
		return false, nil
	}

	if err := c.save(logger, path, d); err != nil {
		return false, err
	}
	logger.Info("Added agent configuration")
	return true, nil
}

// CheckProfiles instruments plugin declarations that already exist inside
// profile builds. Profiles are never given new plugins, so addIfMissing is
// ignored. Every edited profile is written back before the next one is
// processed. It reports whether any profile was edited.
func (c *Checker) CheckProfiles(path, agentArgs string, addIfMissing bool) (bool, error) {
	logger := c.logger.With(zap.String("pom", path), zap.String("check", "profiles"))

	d, err := c.load(logger, path)
	if err != nil {
		return false, err
	}

	profiles := d.Profiles()
	if len(profiles) == 0 {
		logger.Debug("No profiles declared")
		return false, nil
	}
	logger.Debug("Found profiles", zap.Int("count", len(profiles)), zap.Bool("addIfMissingIgnored", addIfMissing))

	anyEdited := false
	for _, profile := range profiles {
		plog := logger.With(zap.String("profile", profile.ID()))
		plog.Debug("Processing profile")

		build := profile.Build()
		if build == nil {
			plog.Warn("Profile has no build section, skipping")
			continue
		}

		edited, err := c.instrumentBuild(plog, build, agentArgs, false)
		if err != nil {
			return anyEdited, err
		}
		if !edited {
			plog.Info("Plugin configuration not found in profile")
			continue
		}

		if err := c.save(plog, path, d); err != nil {
			return anyEdited, err
		}
		plog.Info("Added agent configuration to profile")
		anyEdited = true
	}
	return anyEdited, nil
}

func (c *Checker) load(logger *zap.Logger, path string) (*pom.Descriptor, error) {
	d, err := c.store.Load(path)
	if err != nil {
		if !errors.Is(err, pom.ErrDescriptorParse) {
			err = pom.NewParseError(path, err)
		}
		logger.Error("Failed to load descriptor", zap.Error(err))
		return nil, err
	}
	return d, nil
}

func (c *Checker) save(logger *zap.Logger, path string, d *pom.Descriptor) error {
	if err := c.store.Save(path, d); err != nil {
		if !errors.Is(err, pom.ErrDescriptorWrite) {
			err = pom.NewWriteError(path, err)
		}
		logger.Error("Failed to write descriptor", zap.Error(err))
		return err
	}
	c.instrumented = true
	return nil
}

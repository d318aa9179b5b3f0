package instrument

import (
	"strings"

	"go.uber.org/zap"

	"foresight.thundra.io/cli/internal/core/pom"
)

// scope is one plugin collection that may hold the target plugin.
type scope struct {
	name    string
	plugins *pom.PluginCollection
}

const (
	scopePlugins          = "plugins"
	scopePluginManagement = "pluginManagement"
)

// scopesOf lists the collections of a build scope in edit order: direct
// plugins first, then plugin management when declared.
func scopesOf(build *pom.BuildScope, logger *zap.Logger) []scope {
	scopes := []scope{{name: scopePlugins, plugins: build.Plugins()}}
	if mgmt := build.PluginManagement(); mgmt != nil {
		logger.Debug("Found plugin management section")
		scopes = append(scopes, scope{name: scopePluginManagement, plugins: mgmt})
	}
	return scopes
}

// instrumentBuild applies the agent to every collection of build. The
// result is true when at least one collection was edited.
func (c *Checker) instrumentBuild(logger *zap.Logger, build *pom.BuildScope, composed string, addIfMissing bool) (bool, error) {
	edited := false
	for _, s := range scopesOf(build, logger) {
		scopeLog := logger.With(zap.String("scope", s.name))
		scopeLog.Debug("Checking plugin configuration")

		plugin, err := FindOrCreatePlugin(s.plugins, c.pluginKey, addIfMissing)
		if err != nil {
			return false, err
		}
		if plugin == nil {
			scopeLog.Debug("Plugin not declared in scope")
			continue
		}

		merged := ApplyAgent(plugin, composed)
		scopeLog.Debug("Merged agent arguments into argLine", zap.Int("tokens", len(strings.Fields(merged))))
		edited = true
	}
	return edited, nil
}

package instrument

import (
	"errors"
	"fmt"
	"strings"

	"foresight.thundra.io/cli/internal/core/pom"
)

// ErrMalformedPluginKey is returned for plugin identities that are not of
// the form groupId:artifactId.
var ErrMalformedPluginKey = errors.New("malformed plugin key")

// ParsePluginKey splits a groupId:artifactId key.
func ParsePluginKey(key string) (groupID, artifactID string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q, want groupId:artifactId", ErrMalformedPluginKey, key)
	}
	return parts[0], parts[1], nil
}

// FindPlugin returns the declaration for key, or nil.
func FindPlugin(plugins *pom.PluginCollection, key string) *pom.Plugin {
	return plugins.Get(key)
}

// FindOrCreatePlugin returns the declaration for key. When absent and
// addIfMissing is set a minimal declaration is appended to the collection;
// otherwise nil is returned without error.
func FindOrCreatePlugin(plugins *pom.PluginCollection, key string, addIfMissing bool) (*pom.Plugin, error) {
	if p := FindPlugin(plugins, key); p != nil {
		return p, nil
	}
	if !addIfMissing {
		return nil, nil
	}
	groupID, artifactID, err := ParsePluginKey(key)
	if err != nil {
		return nil, err
	}
	return plugins.Add(groupID, artifactID), nil
}

package pom

import (
	"strings"

	"github.com/beevik/etree"
)

// DefaultGroupID is the group Maven assumes for plugins declared without
// a <groupId>.
const DefaultGroupID = "org.apache.maven.plugins"

// BuildScope is a <build> element, top-level or inside a profile.
type BuildScope struct {
	d  *Descriptor
	el *etree.Element
}

// Plugins returns the direct plugin collection of the scope. The
// <plugins> element is created lazily on the first Add.
func (b *BuildScope) Plugins() *PluginCollection {
	return newPluginCollection(b.d, b.el)
}

// PluginManagement returns the plugin-management collection, or nil when
// the scope has no <pluginManagement> element.
func (b *BuildScope) PluginManagement() *PluginCollection {
	el := b.el.SelectElement(tagPluginManagement)
	if el == nil {
		return nil
	}
	return newPluginCollection(b.d, el)
}

// PluginCollection is a name-keyed, insertion-ordered view over the
// <plugin> children of a <plugins> element. Keys are groupId:artifactId.
type PluginCollection struct {
	d     *Descriptor
	owner *etree.Element
	keys  []string
	byKey map[string]*Plugin
}

func newPluginCollection(d *Descriptor, owner *etree.Element) *PluginCollection {
	c := &PluginCollection{d: d, owner: owner, byKey: make(map[string]*Plugin)}
	container := owner.SelectElement(tagPlugins)
	if container == nil {
		return c
	}
	for _, el := range container.SelectElements(tagPlugin) {
		p := &Plugin{d: d, el: el}
		key := p.Key()
		// the first declaration owns a duplicated key
		if _, dup := c.byKey[key]; dup {
			continue
		}
		c.byKey[key] = p
		c.keys = append(c.keys, key)
	}
	return c
}

// Get returns the plugin declared under key, or nil.
func (c *PluginCollection) Get(key string) *Plugin {
	return c.byKey[key]
}

// Keys returns the plugin keys in declaration order.
func (c *PluginCollection) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of distinct plugin keys.
func (c *PluginCollection) Len() int {
	return len(c.keys)
}

// Add appends a minimal plugin declaration and returns it. When the key is
// already declared the existing declaration is returned unchanged.
func (c *PluginCollection) Add(groupID, artifactID string) *Plugin {
	key := groupID + ":" + artifactID
	if p, ok := c.byKey[key]; ok {
		return p
	}
	container := c.d.ensureChild(c.owner, tagPlugins)
	el := container.CreateElement(tagPlugin)
	el.CreateElement(tagGroupID).SetText(groupID)
	el.CreateElement(tagArtifactID).SetText(artifactID)
	c.d.restructured = true

	p := &Plugin{d: c.d, el: el}
	c.byKey[key] = p
	c.keys = append(c.keys, key)
	return p
}

// Plugin is a <plugin> declaration.
type Plugin struct {
	d  *Descriptor
	el *etree.Element
}

// GroupID returns the declared group, or DefaultGroupID.
func (p *Plugin) GroupID() string {
	if g := childText(p.el, tagGroupID); g != "" {
		return g
	}
	return DefaultGroupID
}

// ArtifactID returns the declared artifact id.
func (p *Plugin) ArtifactID() string {
	return childText(p.el, tagArtifactID)
}

// Key returns groupId:artifactId.
func (p *Plugin) Key() string {
	return p.GroupID() + ":" + p.ArtifactID()
}

// Configuration returns the plugin configuration, or nil when absent.
func (p *Plugin) Configuration() *Configuration {
	el := p.el.SelectElement(tagConfiguration)
	if el == nil {
		return nil
	}
	return &Configuration{d: p.d, el: el}
}

// EnsureConfiguration returns the plugin configuration, creating an empty
// one when absent.
func (p *Plugin) EnsureConfiguration() *Configuration {
	return &Configuration{d: p.d, el: p.d.ensureChild(p.el, tagConfiguration)}
}

// Configuration is a plugin <configuration> element. Only scalar children
// are read or written; other children are left in place.
type Configuration struct {
	d  *Descriptor
	el *etree.Element
}

// Value returns the trimmed text of the named child and whether the child
// exists.
func (c *Configuration) Value(name string) (string, bool) {
	el := c.el.SelectElement(name)
	if el == nil {
		return "", false
	}
	return strings.TrimSpace(el.Text()), true
}

// Ensure creates the named child as the last child when absent.
func (c *Configuration) Ensure(name string) {
	c.d.ensureChild(c.el, name)
}

// SetValue sets the text of the named child, creating it when absent.
func (c *Configuration) SetValue(name, value string) {
	c.d.ensureChild(c.el, name).SetText(value)
}

// Names returns the child element names in document order.
func (c *Configuration) Names() []string {
	var names []string
	for _, el := range c.el.ChildElements() {
		names = append(names, el.Tag)
	}
	return names
}

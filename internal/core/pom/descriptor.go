// Package pom is a thin, order-preserving model over Maven project
// descriptors. It exposes only the parts instrumentation touches: build
// scopes, profiles, plugin collections and plugin configuration. Every
// accessor reads the underlying XML tree directly, so the tree stays the
// single source of truth and untouched parts of the file round-trip as-is.
package pom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

const (
	tagProject          = "project"
	tagBuild            = "build"
	tagProfiles         = "profiles"
	tagProfile          = "profile"
	tagID               = "id"
	tagPlugins          = "plugins"
	tagPlugin           = "plugin"
	tagPluginManagement = "pluginManagement"
	tagGroupID          = "groupId"
	tagArtifactID       = "artifactId"
	tagConfiguration    = "configuration"
)

// indentSpaces is used when new elements were created and the tree is
// re-indented before writing.
const indentSpaces = 2

// Descriptor is a parsed project descriptor.
type Descriptor struct {
	doc     *etree.Document
	project *etree.Element

	// restructured is set once an element was created; the document is
	// then re-indented on write so new elements are laid out like the rest.
	restructured bool
}

// Parse reads a project descriptor. Failures match ErrDescriptorParse.
func Parse(r io.Reader) (*Descriptor, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, NewParseError("", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, NewParseError("", errors.New("document has no root element"))
	}
	if root.Tag != tagProject {
		return nil, NewParseError("", fmt.Errorf("root element is <%s>, want <%s>", root.Tag, tagProject))
	}
	return &Descriptor{doc: doc, project: root}, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*Descriptor, error) {
	return Parse(bytes.NewReader(data))
}

// Build returns the top-level build scope, or nil when the descriptor has
// no <build> element.
func (d *Descriptor) Build() *BuildScope {
	el := d.project.SelectElement(tagBuild)
	if el == nil {
		return nil
	}
	return &BuildScope{d: d, el: el}
}

// EnsureBuild returns the top-level build scope, creating an empty one
// when absent.
func (d *Descriptor) EnsureBuild() *BuildScope {
	return &BuildScope{d: d, el: d.ensureChild(d.project, tagBuild)}
}

// Profiles returns the declared profiles in document order.
func (d *Descriptor) Profiles() []*Profile {
	container := d.project.SelectElement(tagProfiles)
	if container == nil {
		return nil
	}
	var profiles []*Profile
	for _, el := range container.SelectElements(tagProfile) {
		profiles = append(profiles, &Profile{d: d, el: el})
	}
	return profiles
}

// Restructured reports whether elements were created since parsing.
func (d *Descriptor) Restructured() bool {
	return d.restructured
}

// WriteTo serializes the descriptor.
func (d *Descriptor) WriteTo(w io.Writer) (int64, error) {
	if d.restructured {
		d.doc.Indent(indentSpaces)
	}
	return d.doc.WriteTo(w)
}

// Bytes serializes the descriptor into memory.
func (d *Descriptor) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Descriptor) ensureChild(parent *etree.Element, tag string) *etree.Element {
	if el := parent.SelectElement(tag); el != nil {
		return el
	}
	d.restructured = true
	return parent.CreateElement(tag)
}

// Profile is a <profile> entry.
type Profile struct {
	d  *Descriptor
	el *etree.Element
}

// ID returns the profile id, or "" when it has none.
func (p *Profile) ID() string {
	return childText(p.el, tagID)
}

// Build returns the profile's build scope, or nil when absent. Profiles
// are never given a build scope by this package.
func (p *Profile) Build() *BuildScope {
	el := p.el.SelectElement(tagBuild)
	if el == nil {
		return nil
	}
	return &BuildScope{d: p.d, el: el}
}

func childText(parent *etree.Element, tag string) string {
	el := parent.SelectElement(tag)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

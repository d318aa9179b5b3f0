// Package testfixtures builds project descriptors for tests.
package testfixtures

import (
	"strings"

	"github.com/beevik/etree"
	"pgregory.net/rapid"
)

// PluginFixture describes one plugin declaration.
type PluginFixture struct {
	GroupID    string
	ArtifactID string
	// ArgLine is written as configuration/argLine when HasArgLine is set.
	ArgLine    string
	HasArgLine bool
	// Managed places the declaration under pluginManagement.
	Managed bool
}

// ProfileFixture describes one profile.
type ProfileFixture struct {
	ID      string
	NoBuild bool
	Plugins []PluginFixture
}

// Surefire returns a maven-surefire-plugin declaration without a groupId.
func Surefire(argLine string) PluginFixture {
	return PluginFixture{ArtifactID: "maven-surefire-plugin", ArgLine: argLine, HasArgLine: argLine != ""}
}

// Failsafe returns a maven-failsafe-plugin declaration with an explicit groupId.
func Failsafe(argLine string) PluginFixture {
	return PluginFixture{
		GroupID:    "org.apache.maven.plugins",
		ArtifactID: "maven-failsafe-plugin",
		ArgLine:    argLine,
		HasArgLine: argLine != "",
	}
}

// POMBuilder provides a builder pattern for creating test descriptors
type POMBuilder struct {
	artifactID string
	noBuild    bool
	plugins    []PluginFixture
	profiles   []ProfileFixture
}

// NewPOMBuilder creates a builder for a descriptor with an empty build section
func NewPOMBuilder() *POMBuilder {
	return &POMBuilder{artifactID: "fixture"}
}

// WithArtifactID sets the project artifactId
func (b *POMBuilder) WithArtifactID(id string) *POMBuilder {
	b.artifactID = id
	return b
}

// WithoutBuild omits the project build section
func (b *POMBuilder) WithoutBuild() *POMBuilder {
	b.noBuild = true
	return b
}

// WithPlugin adds a plugin to the project build
func (b *POMBuilder) WithPlugin(p PluginFixture) *POMBuilder {
	b.plugins = append(b.plugins, p)
	return b
}

// WithProfile adds a profile
func (b *POMBuilder) WithProfile(p ProfileFixture) *POMBuilder {
	b.profiles = append(b.profiles, p)
	return b
}

// Build renders the descriptor with two-space indentation
func (b *POMBuilder) Build() string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	project := doc.CreateElement("project")
	project.CreateAttr("xmlns", "http://maven.apache.org/POM/4.0.0")
	project.CreateElement("modelVersion").SetText("4.0.0")
	project.CreateElement("groupId").SetText("io.example")
	project.CreateElement("artifactId").SetText(b.artifactID)
	project.CreateElement("version").SetText("1.0.0")

	if !b.noBuild {
		writeBuild(project, b.plugins)
	}

	if len(b.profiles) > 0 {
		profiles := project.CreateElement("profiles")
		for _, p := range b.profiles {
			profile := profiles.CreateElement("profile")
			profile.CreateElement("id").SetText(p.ID)
			if !p.NoBuild {
				writeBuild(profile, p.Plugins)
			}
		}
	}

	doc.Indent(2)
	out, _ := doc.WriteToString()
	return out
}

func writeBuild(parent *etree.Element, plugins []PluginFixture) {
	build := parent.CreateElement("build")

	var direct, managed []PluginFixture
	for _, p := range plugins {
		if p.Managed {
			managed = append(managed, p)
		} else {
			direct = append(direct, p)
		}
	}

	if len(direct) > 0 {
		writePlugins(build, direct)
	}
	if len(managed) > 0 {
		writePlugins(build.CreateElement("pluginManagement"), managed)
	}
}

func writePlugins(parent *etree.Element, plugins []PluginFixture) {
	list := parent.CreateElement("plugins")
	for _, p := range plugins {
		plugin := list.CreateElement("plugin")
		if p.GroupID != "" {
			plugin.CreateElement("groupId").SetText(p.GroupID)
		}
		plugin.CreateElement("artifactId").SetText(p.ArtifactID)
		if p.HasArgLine {
			config := plugin.CreateElement("configuration")
			config.CreateElement("skipTests").SetText("false")
			config.CreateElement("argLine").SetText(p.ArgLine)
		}
	}
}

// ArgLineGen draws pre-existing argLine values, including earlier agent runs.
func ArgLineGen() *rapid.Generator[string] {
	token := rapid.OneOf(
		rapid.SampledFrom([]string{
			"-Xmx512m",
			"-XX:+UseG1GC",
			"${argLine}",
			"@{jacocoArgLine}",
			"-javaagent:/opt/jacoco/jacocoagent.jar=destfile=target/jacoco.exec",
			"-javaagent:/old/ws/thundra-agent-bootstrap.jar",
			"-Dthundra.apiKey=old-key",
			"-Dthundra.agent.test.project.id=old-project",
		}),
		rapid.StringMatching(`-D[a-z]{1,6}=[a-z0-9]{1,4}`),
	)
	return rapid.Custom(func(t *rapid.T) string {
		return strings.Join(rapid.SliceOfN(token, 0, 5).Draw(t, "tokens"), " ")
	})
}

// PluginGen draws Surefire or Failsafe declarations in any scope.
func PluginGen() *rapid.Generator[PluginFixture] {
	return rapid.Custom(func(t *rapid.T) PluginFixture {
		argLine := ArgLineGen().Draw(t, "argLine")
		p := Surefire(argLine)
		if rapid.Bool().Draw(t, "failsafe") {
			p = Failsafe(argLine)
		}
		p.HasArgLine = p.HasArgLine || rapid.Bool().Draw(t, "emptyArgLine")
		p.Managed = rapid.Bool().Draw(t, "managed")
		return p
	})
}

// POMGen draws whole descriptors with optional profiles.
func POMGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		b := NewPOMBuilder()
		if rapid.Bool().Draw(t, "noBuild") {
			b.WithoutBuild()
		} else {
			for _, p := range rapid.SliceOfN(PluginGen(), 0, 3).Draw(t, "plugins") {
				b.WithPlugin(p)
			}
		}
		n := rapid.IntRange(0, 2).Draw(t, "profiles")
		for i := 0; i < n; i++ {
			b.WithProfile(ProfileFixture{
				ID:      rapid.SampledFrom([]string{"ci", "it", "release"}).Draw(t, "profileID"),
				NoBuild: rapid.Bool().Draw(t, "profileNoBuild"),
				Plugins: rapid.SliceOfN(PluginGen(), 0, 2).Draw(t, "profilePlugins"),
			})
		}
		return b.Build()
	})
}

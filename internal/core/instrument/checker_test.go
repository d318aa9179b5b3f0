package instrument

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"foresight.thundra.io/cli/internal/core/pom"
)

const (
	pomPath  = "/ws/pom.xml"
	composed = "-javaagent:/ws/thundra-agent-bootstrap.jar -Dthundra.apiKey=K -Dthundra.agent.test.project.id=P"
)

const noBuildPOM = `<project><modelVersion>4.0.0</modelVersion><artifactId>demo</artifactId></project>`

const surefireArgLinePOM = `<project>
  <build>
    <plugins>
      <plugin>
        <groupId>org.apache.maven.plugins</groupId>
        <artifactId>maven-surefire-plugin</artifactId>
        <configuration>
          <argLine>-Xmx512m</argLine>
        </configuration>
      </plugin>
    </plugins>
  </build>
</project>`

const profilesPOM = `<project>
  <profiles>
    <profile>
      <id>integration</id>
      <build>
        <plugins>
          <plugin>
            <groupId>org.apache.maven.plugins</groupId>
            <artifactId>maven-failsafe-plugin</artifactId>
            <configuration>
              <argLine></argLine>
            </configuration>
          </plugin>
        </plugins>
      </build>
    </profile>
    <profile>
      <id>no-build</id>
    </profile>
    <profile>
      <id>other-plugins</id>
      <build>
        <plugins>
          <plugin>
            <groupId>org.jacoco</groupId>
            <artifactId>jacoco-maven-plugin</artifactId>
          </plugin>
        </plugins>
        <pluginManagement>
          <plugins/>
        </pluginManagement>
      </build>
    </profile>
  </profiles>
</project>`

func argLineOf(t *testing.T, build *pom.BuildScope, key string, management bool) string {
	t.Helper()
	require.NotNil(t, build)
	plugins := build.Plugins()
	if management {
		plugins = build.PluginManagement()
		require.NotNil(t, plugins)
	}
	p := plugins.Get(key)
	require.NotNil(t, p, "plugin %s not declared", key)
	cfg := p.Configuration()
	require.NotNil(t, cfg)
	v, ok := cfg.Value(ArgLineParameter)
	require.True(t, ok)
	return v
}

func TestCheckPom_NoBuildWithAdd_ShouldMaterializeBuildAndPlugin(t *testing.T) {
	store := newMemoryStore(map[string]string{pomPath: noBuildPOM})
	checker := NewSurefireChecker(store, zap.NewNop())

	edited, err := checker.CheckPom(pomPath, composed, true)

	require.NoError(t, err)
	assert.True(t, edited)
	assert.True(t, checker.Instrumented())
	assert.Equal(t, 1, store.writes[pomPath])

	d := store.descriptor(t, pomPath)
	assert.Equal(t, composed, argLineOf(t, d.Build(), SurefirePluginKey, false))
}

func TestCheckPom_NoBuildWithoutAdd_ShouldDoNothing(t *testing.T) {
	store := newMemoryStore(map[string]string{pomPath: noBuildPOM})
	checker := NewSurefireChecker(store, zap.NewNop())

	edited, err := checker.CheckPom(pomPath, composed, false)

	require.NoError(t, err)
	assert.False(t, edited)
	assert.False(t, checker.Instrumented())
	assert.Zero(t, store.writes[pomPath])
	assert.Equal(t, noBuildPOM, string(store.files[pomPath]))
}

func TestCheckPom_ExistingArgLine_ShouldAppendAgentTokens(t *testing.T) {
	store := newMemoryStore(map[string]string{pomPath: surefireArgLinePOM})
	checker := NewSurefireChecker(store, zap.NewNop())

	_, err := checker.CheckPom(pomPath, "/path/agent.jar -Dthundra.apiKey=K -Dthundra.agent.test.project.id=P", true)
	require.NoError(t, err)

	got := argLineOf(t, store.descriptor(t, pomPath).Build(), SurefirePluginKey, false)
	assert.Equal(t, "-Xmx512m -javaagent:/path/agent.jar -Dthundra.apiKey=K -Dthundra.agent.test.project.id=P", got)
}

func TestCheckPom_Rerun_ShouldBeIdempotent(t *testing.T) {
	store := newMemoryStore(map[string]string{pomPath: surefireArgLinePOM})
	checker := NewSurefireChecker(store, zap.NewNop())

	_, err := checker.CheckPom(pomPath, composed, true)
	require.NoError(t, err)
	firstFile := string(store.files[pomPath])
	first := argLineOf(t, store.descriptor(t, pomPath).Build(), SurefirePluginKey, false)

	_, err = checker.CheckPom(pomPath, composed, true)
	require.NoError(t, err)
	second := argLineOf(t, store.descriptor(t, pomPath).Build(), SurefirePluginKey, false)

	assert.Equal(t, "-Xmx512m "+composed, first)
	assert.Equal(t, first, second)
	assert.Equal(t, firstFile, string(store.files[pomPath]), "second rewrite is byte-for-byte identical")
}

func TestCheckPom_PluginAbsentWithoutAdd_ShouldNotWrite(t *testing.T) {
	store := newMemoryStore(map[string]string{pomPath: surefireArgLinePOM})
	checker := NewFailsafeChecker(store, zap.NewNop())

	edited, err := checker.CheckPom(pomPath, composed, false)

	require.NoError(t, err)
	assert.False(t, edited)
	assert.False(t, checker.Instrumented())
	assert.Zero(t, store.writes[pomPath], "descriptor must not be rewritten")
	assert.Equal(t, surefireArgLinePOM, string(store.files[pomPath]))
}

func TestCheckPom_PluginManagement(t *testing.T) {
	const mgmtPOM = `<project>
  <build>
    <plugins>
      <plugin>
        <artifactId>maven-surefire-plugin</artifactId>
      </plugin>
    </plugins>
    <pluginManagement>
      <plugins>
        <plugin>
          <groupId>org.jacoco</groupId>
          <artifactId>jacoco-maven-plugin</artifactId>
        </plugin>
      </plugins>
    </pluginManagement>
  </build>
</project>`

	t.Run("DirectEditedManagementAbsent_ShouldStillPersist", func(t *testing.T) {
		store := newMemoryStore(map[string]string{pomPath: mgmtPOM})
		checker := NewSurefireChecker(store, zap.NewNop())

		edited, err := checker.CheckPom(pomPath, composed, false)

		require.NoError(t, err)
		assert.True(t, edited, "an edit in any scope counts")
		assert.Equal(t, 1, store.writes[pomPath])

		build := store.descriptor(t, pomPath).Build()
		assert.Equal(t, composed, argLineOf(t, build, SurefirePluginKey, false))
		assert.Nil(t, build.PluginManagement().Get(SurefirePluginKey), "management is not touched without addIfMissing")
	})

	t.Run("AddIfMissing_ShouldCreateInBothScopes", func(t *testing.T) {
		store := newMemoryStore(map[string]string{pomPath: mgmtPOM})
		checker := NewFailsafeChecker(store, zap.NewNop())

		edited, err := checker.CheckPom(pomPath, composed, true)

		require.NoError(t, err)
		assert.True(t, edited)

		build := store.descriptor(t, pomPath).Build()
		assert.Equal(t, composed, argLineOf(t, build, FailsafePluginKey, false))
		assert.Equal(t, composed, argLineOf(t, build, FailsafePluginKey, true))
		assert.Equal(t, []string{SurefirePluginKey, FailsafePluginKey}, build.Plugins().Keys())
	})
}

func TestCheckProfiles_ShouldInstrumentExistingProfilePlugins(t *testing.T) {
	store := newMemoryStore(map[string]string{pomPath: profilesPOM})
	checker := NewFailsafeChecker(store, zap.NewNop())

	edited, err := checker.CheckProfiles(pomPath, composed, true)

	require.NoError(t, err)
	assert.True(t, edited)
	assert.True(t, checker.Instrumented())
	assert.Equal(t, 1, store.writes[pomPath], "one write per edited profile")

	profiles := store.descriptor(t, pomPath).Profiles()
	require.Len(t, profiles, 3)
	assert.Equal(t, composed, argLineOf(t, profiles[0].Build(), FailsafePluginKey, false))
	assert.Nil(t, profiles[1].Build(), "profiles never get a build section")

	other := profiles[2].Build()
	assert.Nil(t, other.Plugins().Get(FailsafePluginKey), "profiles never get new plugins")
	assert.Equal(t, 0, other.PluginManagement().Len())
}

func TestCheckProfiles_AddIfMissing_NeverCreatesPlugins(t *testing.T) {
	store := newMemoryStore(map[string]string{pomPath: profilesPOM})
	checker := NewSurefireChecker(store, zap.NewNop())

	edited, err := checker.CheckProfiles(pomPath, composed, true)

	require.NoError(t, err)
	assert.False(t, edited)
	assert.False(t, checker.Instrumented())
	assert.Zero(t, store.writes[pomPath])
}

func TestCheckProfiles_WritesEachEditedProfile(t *testing.T) {
	const twoProfiles = `<project><profiles>
  <profile><id>a</id><build><plugins><plugin><artifactId>maven-surefire-plugin</artifactId></plugin></plugins></build></profile>
  <profile><id>b</id><build><pluginManagement><plugins><plugin><artifactId>maven-surefire-plugin</artifactId></plugin></plugins></pluginManagement></build></profile>
</profiles></project>`
	store := newMemoryStore(map[string]string{pomPath: twoProfiles})
	checker := NewSurefireChecker(store, zap.NewNop())

	edited, err := checker.CheckProfiles(pomPath, composed, false)

	require.NoError(t, err)
	assert.True(t, edited)
	assert.Equal(t, 2, store.writes[pomPath])

	profiles := store.descriptor(t, pomPath).Profiles()
	assert.Equal(t, composed, argLineOf(t, profiles[0].Build(), SurefirePluginKey, false))
	assert.Equal(t, composed, argLineOf(t, profiles[1].Build(), SurefirePluginKey, true))
}

func TestCheckProfiles_NoProfiles(t *testing.T) {
	store := newMemoryStore(map[string]string{pomPath: surefireArgLinePOM})
	checker := NewSurefireChecker(store, zap.NewNop())

	edited, err := checker.CheckProfiles(pomPath, composed, true)

	require.NoError(t, err)
	assert.False(t, edited)
	assert.Zero(t, store.writes[pomPath])
}

func TestChecker_Failures(t *testing.T) {
	t.Run("MalformedDescriptor_ShouldReturnParseFailure", func(t *testing.T) {
		store := newMemoryStore(map[string]string{pomPath: "<project><build>"})
		checker := NewSurefireChecker(store, zap.NewNop())

		_, err := checker.CheckPom(pomPath, composed, true)
		assert.True(t, errors.Is(err, pom.ErrDescriptorParse), "got %v", err)

		_, err = checker.CheckProfiles(pomPath, composed, true)
		assert.True(t, errors.Is(err, pom.ErrDescriptorParse), "got %v", err)
		assert.False(t, checker.Instrumented())
	})

	t.Run("MissingFile_ShouldReturnParseFailure", func(t *testing.T) {
		checker := NewSurefireChecker(newMemoryStore(nil), zap.NewNop())

		_, err := checker.CheckPom(pomPath, composed, true)
		assert.True(t, errors.Is(err, pom.ErrDescriptorParse), "got %v", err)
	})

	t.Run("SaveFailure_ShouldReturnWriteFailure", func(t *testing.T) {
		store := newMemoryStore(map[string]string{pomPath: surefireArgLinePOM})
		store.saveErr = errors.New("disk full")
		checker := NewSurefireChecker(store, zap.NewNop())

		edited, err := checker.CheckPom(pomPath, composed, true)

		assert.False(t, edited)
		assert.True(t, errors.Is(err, pom.ErrDescriptorWrite), "got %v", err)
		assert.False(t, checker.Instrumented())
		assert.Equal(t, surefireArgLinePOM, string(store.files[pomPath]))
	})

	t.Run("SaveFailureInProfiles_ShouldAbortRemainingProfiles", func(t *testing.T) {
		store := newMemoryStore(map[string]string{pomPath: profilesPOM})
		store.saveErr = errors.New("read-only file system")
		checker := NewFailsafeChecker(store, zap.NewNop())

		_, err := checker.CheckProfiles(pomPath, composed, false)

		assert.True(t, errors.Is(err, pom.ErrDescriptorWrite))
	})
}

func TestNewChecker_MalformedKey_ShouldFail(t *testing.T) {
	_, err := NewChecker("maven-surefire-plugin", "Surefire", newMemoryStore(nil), nil)
	assert.True(t, errors.Is(err, ErrMalformedPluginKey))
}

func TestChecker_LogsDecisionPoints(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	const pomWithManagement = `<project><build>
  <plugins><plugin><artifactId>maven-surefire-plugin</artifactId></plugin></plugins>
  <pluginManagement><plugins/></pluginManagement>
</build>
<profiles><profile><id>bare</id></profile></profiles>
</project>`
	store := newMemoryStore(map[string]string{pomPath: pomWithManagement, "/ws/empty.xml": noBuildPOM})
	checker := NewSurefireChecker(store, logger)

	_, err := checker.CheckProfiles(pomPath, composed, true)
	require.NoError(t, err)
	_, err = checker.CheckPom(pomPath, composed, false)
	require.NoError(t, err)
	_, err = checker.CheckPom("/ws/empty.xml", composed, false)
	require.NoError(t, err)

	for _, msg := range []string{
		"Found profiles",
		"Processing profile",
		"Profile has no build section, skipping",
		"Found build section",
		"Found plugin management section",
		"Plugin not declared in scope",
		"Added agent configuration",
		"No build section found, nothing to instrument",
	} {
		assert.NotZero(t, logs.FilterMessage(msg).Len(), "expected log %q", msg)
	}

	for _, entry := range logs.All() {
		for _, field := range entry.Context {
			assert.NotContains(t, field.String, "apiKey=K", "agent arguments must not be logged")
		}
	}
}

package argline

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

const (
	testAgent    = "-javaagent:/ws/thundra-agent-bootstrap.jar"
	testAPIKey   = "-Dthundra.apiKey=K"
	testProject  = "-Dthundra.agent.test.project.id=P"
	testComposed = testAgent + " " + testAPIKey + " " + testProject
)

func TestMerge_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		existing    string
		composed    string
		expected    string
		description string
	}{
		{
			name:        "EmptyExisting_ShouldReturnComposed",
			existing:    "",
			composed:    testComposed,
			expected:    testComposed,
			description: "Empty argLine takes the composed arguments verbatim",
		},
		{
			name:        "WhitespaceExisting_ShouldReturnTrimmedComposed",
			existing:    "  \n\t ",
			composed:    "  " + testComposed + "  ",
			expected:    testComposed,
			description: "Incidental whitespace is collapsed",
		},
		{
			name:        "ExistingMemoryFlag_ShouldAppendAfter",
			existing:    "-Xmx512m",
			composed:    testComposed,
			expected:    "-Xmx512m " + testComposed,
			description: "Unrelated flags stay first and new tokens are appended",
		},
		{
			name:        "ExistingThundraTokens_ShouldReplaceInPlace",
			existing:    "-Xmx512m -Dthundra.apiKey=OLD -Dfoo=bar -Dthundra.agent.test.project.id=OLDP",
			composed:    testComposed,
			expected:    "-Xmx512m " + testAPIKey + " -Dfoo=bar " + testProject + " " + testAgent,
			description: "Matching kinds are replaced at their existing position",
		},
		{
			name:        "DuplicateExistingKind_ShouldKeepFirstOnly",
			existing:    "-Dthundra.apiKey=A -Xss1m -Dthundra.apiKey=B",
			composed:    testAPIKey,
			expected:    testAPIKey + " -Xss1m",
			description: "Later tokens of an already replaced kind are dropped",
		},
		{
			name:        "BareAgentPath_ShouldBeShapedAsJavaAgent",
			existing:    "",
			composed:    "/path/agent.jar " + testAPIKey,
			expected:    "-javaagent:/path/agent.jar " + testAPIKey,
			description: "A token without '=' is an agent jar path",
		},
		{
			name:        "SameAgentJarDifferentDir_ShouldReplace",
			existing:    "-javaagent:/old/ws/thundra-agent-bootstrap.jar -Xmx1g",
			composed:    testAgent,
			expected:    testAgent + " -Xmx1g",
			description: "Agent tokens match on jar file name",
		},
		{
			name:        "ForeignAgent_ShouldBePreserved",
			existing:    "-javaagent:/m2/org.jacoco.agent-runtime.jar=destfile=target/jacoco.exec",
			composed:    testAgent,
			expected:    "-javaagent:/m2/org.jacoco.agent-runtime.jar=destfile=target/jacoco.exec " + testAgent,
			description: "Other agents are opaque",
		},
		{
			name:        "PropertyReference_ShouldBePreserved",
			existing:    "${argLine} @{surefireArgLine}",
			composed:    testComposed,
			expected:    "${argLine} @{surefireArgLine} " + testComposed,
			description: "Maven property references are opaque",
		},
		{
			name:        "KindAbsentFromComposed_ShouldStayUntouched",
			existing:    "-Dthundra.apiKey=KEEP",
			composed:    testAgent,
			expected:    "-Dthundra.apiKey=KEEP " + testAgent,
			description: "Only kinds present in the composed arguments are replaced",
		},
		{
			name:        "RunID_ShouldBeReplaced",
			existing:    "-Dthundra.agent.test.run.id=old-run",
			composed:    "-Dthundra.agent.test.run.id=new-run",
			expected:    "-Dthundra.agent.test.run.id=new-run",
			description: "Each run gets a fresh run id without accumulating old ones",
		},
		{
			name:        "SimilarPrefix_ShouldNotMatch",
			existing:    "-Dthundra.apiKeyFile=/secret",
			composed:    testAPIKey,
			expected:    "-Dthundra.apiKeyFile=/secret " + testAPIKey,
			description: "A property whose name only starts with the prefix is a different property",
		},
		{
			name:        "EmptyComposed_ShouldNormalizeExisting",
			existing:    " -Xmx1g   -Xss1m ",
			composed:    "",
			expected:    "-Xmx1g -Xss1m",
			description: "Nothing to inject leaves existing tokens in order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Merge(tt.existing, tt.composed), tt.description)
		})
	}
}

func TestMerge_RerunWithSameArguments_ShouldBeUnchanged(t *testing.T) {
	composed := "/path/agent.jar -Dthundra.apiKey=K -Dthundra.agent.test.project.id=P"

	first := Merge("-Xmx512m", composed)
	assert.Equal(t, "-Xmx512m -javaagent:/path/agent.jar -Dthundra.apiKey=K -Dthundra.agent.test.project.id=P", first)

	second := Merge(first, composed)
	assert.Equal(t, first, second, "second merge should not duplicate agent, apiKey or projectId")
}

func TestParseComposed_LastValueWins(t *testing.T) {
	c := ParseComposed("-Dthundra.apiKey=A /a.jar -Dthundra.apiKey=B -Dx=1 -Dx=1")

	want := []Token{
		{Kind: KindAPIKey, Value: "-Dthundra.apiKey=B"},
		{Kind: KindAgentPath, Value: "-javaagent:/a.jar"},
		{Kind: KindOpaque, Value: "-Dx=1"},
	}
	if diff := cmp.Diff(want, c.Tokens()); diff != "" {
		t.Errorf("ParseComposed() mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, c.Has(KindAPIKey))
	assert.False(t, c.Has(KindProjectID))
	assert.False(t, c.Has(KindOpaque))
}

// Property-based tests using rapid

func existingTokenGen() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.SampledFrom([]string{
			"-Xmx512m", "-Xss1m", "${argLine}", "-Dfile.encoding=UTF-8",
			"-javaagent:/m2/jacoco.jar=destfile=x.exec",
			"-javaagent:/old/thundra-agent-bootstrap.jar",
		}),
		rapid.StringMatching(`-Dthundra\.apiKey=[a-z0-9]{1,6}`),
		rapid.StringMatching(`-Dthundra\.agent\.test\.project\.id=[a-z0-9]{1,6}`),
		rapid.StringMatching(`-Dthundra\.agent\.test\.run\.id=[a-f0-9]{4}`),
		rapid.StringMatching(`-D[a-z]{1,5}=[a-z]{0,3}`),
	)
}

func composedGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		var parts []string
		if rapid.Bool().Draw(t, "withAgent") {
			parts = append(parts, rapid.SampledFrom([]string{
				"/ws/thundra-agent-bootstrap.jar",
				"-javaagent:/ci/thundra-agent-bootstrap.jar",
				"/tmp/other-agent.jar",
			}).Draw(t, "agent"))
		}
		if rapid.Bool().Draw(t, "withKey") {
			parts = append(parts, rapid.StringMatching(`-Dthundra\.apiKey=[A-Z0-9]{1,6}`).Draw(t, "key"))
		}
		if rapid.Bool().Draw(t, "withProject") {
			parts = append(parts, rapid.StringMatching(`-Dthundra\.agent\.test\.project\.id=[A-Z0-9]{1,6}`).Draw(t, "project"))
		}
		if rapid.Bool().Draw(t, "withRun") {
			parts = append(parts, rapid.StringMatching(`-Dthundra\.agent\.test\.run\.id=[a-f0-9]{8}`).Draw(t, "run"))
		}
		perm := rapid.Permutation(parts).Draw(t, "order")
		return strings.Join(perm, " ")
	})
}

func TestMerge_PropertyBased_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		existing := strings.Join(rapid.SliceOfN(existingTokenGen(), 0, 8).Draw(t, "existing"), " ")
		composed := composedGen().Draw(t, "composed")

		once := Merge(existing, composed)
		twice := Merge(once, composed)
		if once != twice {
			t.Fatalf("merge is not a fixed point:\nonce:  %q\ntwice: %q", once, twice)
		}
	})
}

func TestMerge_PropertyBased_PreservesOpaqueOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		existingTokens := rapid.SliceOfN(existingTokenGen(), 0, 8).Draw(t, "existing")
		composed := composedGen().Draw(t, "composed")
		c := ParseComposed(composed)

		var opaque []string
		for _, tok := range existingTokens {
			if c.slot(tok) < 0 {
				opaque = append(opaque, tok)
			}
		}

		merged := strings.Fields(Merge(strings.Join(existingTokens, " "), composed))

		// opaque tokens must appear as a subsequence of the merged tokens
		j := 0
		for _, tok := range merged {
			if j < len(opaque) && tok == opaque[j] {
				j++
			}
		}
		if j != len(opaque) {
			t.Fatalf("opaque tokens lost or reordered: opaque=%q merged=%q", opaque, merged)
		}
	})
}

func TestMerge_PropertyBased_NoDuplicateKinds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		existing := strings.Join(rapid.SliceOfN(existingTokenGen(), 0, 8).Draw(t, "existing"), " ")
		composed := composedGen().Draw(t, "composed")
		c := ParseComposed(composed)

		counts := make(map[Kind]int)
		for _, tok := range strings.Fields(Merge(existing, composed)) {
			kind := Classify(tok, c.jar)
			if c.Has(kind) {
				counts[kind]++
			}
		}
		for kind, n := range counts {
			if n != 1 {
				t.Fatalf("kind %s appears %d times", kind, n)
			}
		}
	})
}

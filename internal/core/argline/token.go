package argline

import "strings"

// Kind classifies a single argLine token.
type Kind int

const (
	KindOpaque Kind = iota
	KindAgentPath
	KindAPIKey
	KindProjectID
	KindRunID
	KindRestBaseURL
)

// JavaAgentPrefix is the JVM flag that loads an agent jar.
const JavaAgentPrefix = "-javaagent:"

// System property names carried by the composed agent arguments.
const (
	APIKeyProperty      = "-Dthundra.apiKey"
	ProjectIDProperty   = "-Dthundra.agent.test.project.id"
	RunIDProperty       = "-Dthundra.agent.test.run.id"
	RestBaseURLProperty = "-Dthundra.agent.report.rest.baseurl"
)

// flagPrefixes is the closed classification table for property flags.
// Order matters only for readability; prefixes never overlap because a
// match requires the prefix to be followed by '=' or end the token.
var flagPrefixes = []struct {
	kind   Kind
	prefix string
}{
	{KindAPIKey, APIKeyProperty},
	{KindProjectID, ProjectIDProperty},
	{KindRunID, RunIDProperty},
	{KindRestBaseURL, RestBaseURLProperty},
}

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindAgentPath:
		return "agentPath"
	case KindAPIKey:
		return "apiKey"
	case KindProjectID:
		return "projectId"
	case KindRunID:
		return "runId"
	case KindRestBaseURL:
		return "restBaseUrl"
	default:
		return "opaque"
	}
}

// Token is a classified argLine token.
type Token struct {
	Kind  Kind
	Value string
}

// flagKind returns the property kind of tok, or KindOpaque.
func flagKind(tok string) Kind {
	for _, fp := range flagPrefixes {
		if !strings.HasPrefix(tok, fp.prefix) {
			continue
		}
		rest := tok[len(fp.prefix):]
		if rest == "" || rest[0] == '=' {
			return fp.kind
		}
	}
	return KindOpaque
}

// ClassifyComposed classifies a token of the composed agent arguments.
// A bare token without '=' is an agent jar path and is returned shaped
// as a -javaagent flag.
func ClassifyComposed(tok string) Token {
	if strings.HasPrefix(tok, JavaAgentPrefix) {
		return Token{Kind: KindAgentPath, Value: tok}
	}
	if kind := flagKind(tok); kind != KindOpaque {
		return Token{Kind: kind, Value: tok}
	}
	if !strings.Contains(tok, "=") {
		return Token{Kind: KindAgentPath, Value: JavaAgentPrefix + tok}
	}
	return Token{Kind: KindOpaque, Value: tok}
}

// Classify classifies a token already present in an argLine. Agent flags
// are only recognized relative to the agent jar being injected, so a
// foreign -javaagent (jacoco, mockito, ...) stays opaque. agentJar may be
// empty, in which case no token is classified as KindAgentPath.
func Classify(tok, agentJar string) Kind {
	if strings.HasPrefix(tok, JavaAgentPrefix) {
		if agentJar != "" && jarName(tok) == agentJar {
			return KindAgentPath
		}
		return KindOpaque
	}
	return flagKind(tok)
}

// jarName returns the file name of the jar referenced by a -javaagent flag,
// ignoring agent options after '='.
func jarName(agentFlag string) string {
	p := strings.TrimPrefix(agentFlag, JavaAgentPrefix)
	if i := strings.IndexByte(p, '='); i >= 0 {
		p = p[:i]
	}
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	return p
}

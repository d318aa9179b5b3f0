// Package argline merges composed agent arguments into an existing
// Surefire/Failsafe argLine value.
//
// The merge is a fixed point: merging the same composed arguments into
// its own output returns that output unchanged, so re-running the
// instrumentation on an already instrumented descriptor never duplicates
// flags.
package argline

import "strings"

// Composed is the parsed form of the composed agent arguments.
type Composed struct {
	tokens []Token
	index  map[string]int
	jar    string
}

// ParseComposed splits and classifies the composed agent arguments.
// When a kind occurs more than once the last value wins while keeping the
// position of the first occurrence.
func ParseComposed(composed string) *Composed {
	c := &Composed{index: make(map[string]int)}
	for _, raw := range strings.Fields(composed) {
		tok := ClassifyComposed(raw)
		key := slotKey(tok)
		if i, ok := c.index[key]; ok {
			c.tokens[i] = tok
		} else {
			c.index[key] = len(c.tokens)
			c.tokens = append(c.tokens, tok)
		}
		if tok.Kind == KindAgentPath {
			c.jar = jarName(tok.Value)
		}
	}
	return c
}

// Tokens returns the classified tokens in composed order.
func (c *Composed) Tokens() []Token {
	out := make([]Token, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// Has reports whether the composed arguments carry a token of kind k.
func (c *Composed) Has(k Kind) bool {
	if k == KindOpaque {
		return false
	}
	_, ok := c.index[kindKey(k)]
	return ok
}

// slot returns the index of the pending token that an existing token
// should be replaced by, or -1 when the existing token is unrelated.
func (c *Composed) slot(existing string) int {
	kind := Classify(existing, c.jar)
	key := kindKey(kind)
	if kind == KindOpaque {
		key = valueKey(existing)
	}
	if i, ok := c.index[key]; ok {
		return i
	}
	return -1
}

func slotKey(tok Token) string {
	if tok.Kind == KindOpaque {
		return valueKey(tok.Value)
	}
	return kindKey(tok.Kind)
}

func kindKey(k Kind) string { return "kind:" + k.String() }
func valueKey(v string) string { return "value:" + v }

// Merge folds composed into existing. Unrelated tokens keep their order.
// The first existing token of each composed kind is replaced in place,
// further tokens of that kind are dropped, and composed tokens with no
// existing counterpart are appended in composed order.
func Merge(existing, composed string) string {
	return ParseComposed(composed).MergeInto(existing)
}

// MergeInto is Merge with pre-parsed composed arguments.
func (c *Composed) MergeInto(existing string) string {
	consumed := make([]bool, len(c.tokens))
	out := make([]string, 0, len(c.tokens)+8)

	for _, tok := range strings.Fields(existing) {
		i := c.slot(tok)
		if i < 0 {
			out = append(out, tok)
			continue
		}
		if consumed[i] {
			continue
		}
		consumed[i] = true
		out = append(out, c.tokens[i].Value)
	}

	for i, tok := range c.tokens {
		if !consumed[i] {
			out = append(out, tok.Value)
		}
	}
	return strings.Join(out, " ")
}

// Package locator models the ordered fallback chains used to find
// elements in the portal's ExtJS UI. The portal renders auto-generated
// ids and inconsistent markup, so a single selector per target is not
// reliable; each logical target instead carries an ordered list of
// alternative strategies tried until one resolves.
package locator

import (
	"fmt"
	"strings"
)

// Kind identifies a locating strategy variant.
type Kind string

const (
	KindText        Kind = "text"
	KindPartialText Kind = "partial-text"
	KindRole        Kind = "role"
	KindIDPattern   Kind = "id-pattern"
	KindAttribute   Kind = "attribute"
	KindXPath       Kind = "xpath"
)

// Strategy is one way of locating a logical UI element.
type Strategy struct {
	Kind Kind

	// Value is the text, role name, attribute value, xpath expression
	// or id prefix depending on Kind.
	Value string

	// Arg is the secondary argument: role kind for KindRole, attribute
	// name for KindAttribute, id suffix for KindIDPattern.
	Arg string
}

// Text matches an element whose text content equals s exactly.
func Text(s string) Strategy {
	return Strategy{Kind: KindText, Value: s}
}

// PartialText matches an element whose text content contains s.
func PartialText(s string) Strategy {
	return Strategy{Kind: KindPartialText, Value: s}
}

// Role matches by ARIA role and accessible name.
func Role(role, name string) Strategy {
	return Strategy{Kind: KindRole, Arg: role, Value: name}
}

// IDPattern matches auto-generated ExtJS ids by prefix and/or suffix.
func IDPattern(prefix, suffix string) Strategy {
	return Strategy{Kind: KindIDPattern, Value: prefix, Arg: suffix}
}

// Attr matches by attribute equality, e.g. Attr("name", "Username").
func Attr(name, value string) Strategy {
	return Strategy{Kind: KindAttribute, Arg: name, Value: value}
}

// XPath matches by a raw XPath expression, the escape hatch for ExtJS
// structures the other strategies cannot express.
func XPath(expr string) Strategy {
	return Strategy{Kind: KindXPath, Value: expr}
}

// Selector renders the strategy as a playwright selector string.
func (s Strategy) Selector() string {
	switch s.Kind {
	case KindText:
		return fmt.Sprintf("text=%q", s.Value)
	case KindPartialText:
		return "text=" + s.Value
	case KindRole:
		return fmt.Sprintf("role=%s[name=%q]", s.Arg, s.Value)
	case KindIDPattern:
		var b strings.Builder
		b.WriteString("css=")
		if s.Value != "" {
			fmt.Fprintf(&b, "[id^=%q]", s.Value)
		}
		if s.Arg != "" {
			fmt.Fprintf(&b, "[id$=%q]", s.Arg)
		}
		return b.String()
	case KindAttribute:
		return fmt.Sprintf("css=[%s=%q]", s.Arg, s.Value)
	case KindXPath:
		return "xpath=" + s.Value
	default:
		return ""
	}
}

// String describes the strategy for logs and error messages.
func (s Strategy) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, s.Value)
}

// Chain is the ordered list of alternative strategies for one logical
// UI target.
type Chain struct {
	// Target is the human-readable name of the element, used in logs
	// and failure messages.
	Target string

	Strategies []Strategy
}

// NewChain builds a chain for the named target.
func NewChain(target string, strategies ...Strategy) Chain {
	return Chain{Target: target, Strategies: strategies}
}

// Probe reports whether a selector currently resolves to a usable
// element. Implementations are free to require visibility or
// clickability on top of existence.
type Probe func(selector string) (bool, error)

// Resolve tries each strategy in order and returns the first one the
// probe confirms. Probe errors on one strategy do not abort the chain;
// the next strategy is tried. Returns an error only when every strategy
// is exhausted.
func Resolve(chain Chain, probe Probe) (Strategy, error) {
	var lastErr error
	for _, strategy := range chain.Strategies {
		ok, err := probe(strategy.Selector())
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return strategy, nil
		}
	}
	if lastErr != nil {
		return Strategy{}, fmt.Errorf("no strategy resolved %q (last error: %w)", chain.Target, lastErr)
	}
	return Strategy{}, fmt.Errorf("no strategy resolved %q: all %d strategies exhausted", chain.Target, len(chain.Strategies))
}

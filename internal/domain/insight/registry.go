package insight

import (
	"encoding/json"
	"sort"

	"github.com/placescope/placescope/pkg/errors"
)

// AllKey is the key of the synthetic head rule.
const AllKey = "all"

// RuleConfig is one entry of the insight configuration document, keyed by
// rule name in the parent object.
type RuleConfig struct {
	Label  string `json:"label"`
	Emoji  string `json:"emoji"`
	Order  int    `json:"order"`
	Filter string `json:"filter"`
	Sort   string `json:"sort"`
	Heat   string `json:"heat"`
}

// Rule is a compiled insight rule: the configured sources plus their
// compiled artifacts.  Rules are built once per configuration load and
// read-only afterward.
type Rule struct {
	Key   string
	Label string
	Emoji string
	Order int

	PredicateSource string
	SortDirective   string
	HeatSource      string

	Predicate  Predicate
	Heat       *HeatFunc
	Comparator Comparator

	// Degradations names the artifacts that failed shape recognition and
	// run in degraded form: "predicate", "heat", "sort".
	Degradations []string
}

// Degraded reports whether any of the rule's artifacts failed compilation.
func (r Rule) Degraded() bool {
	return len(r.Degradations) > 0
}

// AllRule returns the synthetic head rule: always-true predicate, default
// order, no heat source.
func AllRule() Rule {
	return Rule{
		Key:        AllKey,
		Label:      "All places",
		Predicate:  AlwaysTrue(),
		Comparator: DefaultComparator(),
	}
}

// CompileRule compiles one configured rule into a Rule, recording which
// artifacts degraded.  It never fails; degraded artifacts run in their safe
// default form.
func (c *Compiler) CompileRule(key string, cfg RuleConfig) Rule {
	r := Rule{
		Key:             key,
		Label:           cfg.Label,
		Emoji:           cfg.Emoji,
		Order:           cfg.Order,
		PredicateSource: cfg.Filter,
		SortDirective:   cfg.Sort,
		HeatSource:      cfg.Heat,
	}
	if r.Label == "" {
		r.Label = key
	}

	r.Predicate = c.CompilePredicate(cfg.Filter)
	if cfg.Filter != "" && r.Predicate.Shape == ShapeAlwaysTrue {
		r.Degradations = append(r.Degradations, "predicate")
	}

	r.Heat = c.CompileHeat(cfg.Heat)
	if r.Heat != nil && r.Heat.Kind == HeatZero {
		r.Degradations = append(r.Degradations, "heat")
	}

	r.Comparator = c.CompileSort(cfg.Sort)
	if _, ok := ParseSort(cfg.Sort); !ok {
		r.Degradations = append(r.Degradations, "sort")
	}

	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

// Registry is the ordered, immutable set of compiled rules.  The synthetic
// "all" rule is always present and always first.
type Registry struct {
	rules []Rule
	index map[string]int
}

// DefaultRegistry returns the fallback registry holding only the synthetic
// "all" rule.  It is the registry of record whenever the configuration
// document is absent or unparseable.
func DefaultRegistry() *Registry {
	return newRegistry(nil)
}

// BuildRegistry parses an insight configuration document and compiles every
// entry.  The returned Registry is always usable: on an unparseable document
// it is the default registry and the error describes the defect.  Rule-level
// compilation failures degrade inside their Rule and never produce an error.
func BuildRegistry(doc []byte, c *Compiler) (*Registry, error) {
	if len(doc) == 0 {
		return DefaultRegistry(), errors.New(errors.ErrCodeRuleDocument,
			"insight configuration document is empty")
	}

	var entries map[string]RuleConfig
	if err := json.Unmarshal(doc, &entries); err != nil {
		return DefaultRegistry(), errors.Wrap(err, errors.ErrCodeRuleDocument,
			"insight configuration document is not a JSON object of rules")
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		if key == "" || key == AllKey {
			// The synthetic head cannot be overridden.
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := entries[keys[i]].Order, entries[keys[j]].Order
		if oi != oj {
			return oi < oj
		}
		return keys[i] < keys[j]
	})

	rules := make([]Rule, 0, len(keys))
	for _, key := range keys {
		rules = append(rules, c.CompileRule(key, entries[key]))
	}
	return newRegistry(rules), nil
}

func newRegistry(rules []Rule) *Registry {
	all := append([]Rule{AllRule()}, rules...)
	index := make(map[string]int, len(all))
	for i, r := range all {
		index[r.Key] = i
	}
	return &Registry{rules: all, index: index}
}

// Rules returns the ordered rules.  Callers must not mutate the slice.
func (g *Registry) Rules() []Rule {
	return g.rules
}

// Len returns the number of rules including the synthetic head.
func (g *Registry) Len() int {
	return len(g.rules)
}

// Head returns the synthetic "all" rule.
func (g *Registry) Head() Rule {
	return g.rules[0]
}

// Get returns the rule with the given key.
func (g *Registry) Get(key string) (Rule, bool) {
	i, ok := g.index[key]
	if !ok {
		return Rule{}, false
	}
	return g.rules[i], true
}

// Resolve returns the rule with the given key, falling back to the synthetic
// head for an empty or unknown key.
func (g *Registry) Resolve(key string) Rule {
	if r, ok := g.Get(key); ok {
		return r
	}
	return g.Head()
}

// DegradedCount returns how many rules carry at least one degraded artifact.
func (g *Registry) DegradedCount() int {
	n := 0
	for _, r := range g.rules {
		if r.Degraded() {
			n++
		}
	}
	return n
}

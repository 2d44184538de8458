package insight

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ruleLexer tokenizes the constrained JavaScript-heritage rule vocabulary.
// Longer operators precede their prefixes so that "===" never lexes as "==".
var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Float", Pattern: `[-+]?\d*\.\d+([eE][-+]?\d+)?`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "String", Pattern: `"[^"]*"|'[^']*'`},
	{Name: "FactPath", Pattern: `[a-zA-Z_]\w*\.[a-zA-Z_0-9.]+`},
	{Name: "AndOp", Pattern: `&&`},
	{Name: "OrOp", Pattern: `\|\||\?\?`},
	{Name: "CmpOp", Pattern: `===|!==|==|!=|>=|<=|>|<`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Semi", Pattern: `;`},
})

var (
	predicateParser = participle.MustBuild[ruleExpr](
		participle.Lexer(ruleLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)

	heatParser = participle.MustBuild[heatExpr](
		participle.Lexer(ruleLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

// ruleExpr is the root production of a predicate rule text: an optional
// return keyword, then either a bare quoted search term or a conjunction of
// comparison clauses, optionally semicolon-terminated.
type ruleExpr struct {
	Term *string      `parser:"'return'? ( @String"`
	Conj *conjunction `parser:"| @@ ) Semi?"`
}

type conjunction struct {
	First *clause   `parser:"@@"`
	Rest  []*clause `parser:"( AndOp @@ )*"`
}

// clause is one fieldRef-operator-literal comparison.
type clause struct {
	Field string  `parser:"@(FactPath | Ident)"`
	Op    string  `parser:"@CmpOp"`
	Value literal `parser:"@@"`
}

type literal struct {
	Float *float64 `parser:"  @Float"`
	Int   *int64   `parser:"| @Int"`
	Str   *string  `parser:"| @String"`
}

// heatExpr is the root production of a heat rule text: a field read with an
// optional "|| default" or "?? default" fallback.
type heatExpr struct {
	Field   string   `parser:"'return'? @(FactPath | Ident)"`
	Default *float64 `parser:"( OrOp @(Float | Int) )? Semi?"`
}

// clauses returns the conjunction's clauses as one flat slice.
func (c *conjunction) clauses() []*clause {
	out := make([]*clause, 0, 1+len(c.Rest))
	out = append(out, c.First)
	out = append(out, c.Rest...)
	return out
}

// number returns the literal's numeric value, reporting false for strings.
func (l literal) number() (float64, bool) {
	switch {
	case l.Float != nil:
		return *l.Float, true
	case l.Int != nil:
		return float64(*l.Int), true
	default:
		return 0, false
	}
}

// text returns the literal's string value with quotes stripped, reporting
// false for numbers.
func (l literal) text() (string, bool) {
	if l.Str == nil {
		return "", false
	}
	return unquote(*l.Str), true
}

// unquote strips one layer of single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// parsePredicateText parses a predicate rule text, reporting failure for
// anything outside the grammar.
func parsePredicateText(text string) (*ruleExpr, bool) {
	expr, err := predicateParser.ParseString("", strings.TrimSpace(text))
	if err != nil {
		return nil, false
	}
	return expr, true
}

// parseHeatText parses a heat rule text.
func parseHeatText(text string) (*heatExpr, bool) {
	expr, err := heatParser.ParseString("", strings.TrimSpace(text))
	if err != nil {
		return nil, false
	}
	return expr, true
}

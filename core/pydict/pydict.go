// Package pydict parses the dictionary literal embedded in NPY headers.
//
// Only the literal subset NumPy emits is understood: single-quoted strings
// without escapes, decimal integers, True/False and tuples of integers.
// Trailing commas before a closing delimiter are accepted.
package pydict

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/npyz/core/errors"
)

// Dict is a parsed dictionary literal. Values are string, bool, int64 or []int64.
type Dict map[string]any

// String returns the string stored under key.
func (d Dict) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// Bool returns the boolean stored under key.
func (d Dict) Bool(key string) (bool, bool) {
	v, ok := d[key].(bool)
	return v, ok
}

// Int returns the integer stored under key.
func (d Dict) Int(key string) (int64, bool) {
	v, ok := d[key].(int64)
	return v, ok
}

// Tuple returns the integer tuple stored under key.
func (d Dict) Tuple(key string) ([]int64, bool) {
	v, ok := d[key].([]int64)
	return v, ok
}

// dictLiteral is the participle grammar for the header dictionary.
// Examples: "{}", "{'descr': '<i8', 'fortran_order': False, 'shape': (2, 3), }"
//
//nolint:govet // participle grammar tags are not standard struct tags
type dictLiteral struct {
	Entries []*entryLiteral `"{" ( @@ ","? )* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type entryLiteral struct {
	Key   string        `@String ":"`
	Value *valueLiteral `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type valueLiteral struct {
	Tuple *tupleLiteral `  @@`
	Str   *string       `| @String`
	Bool  *string       `| @Bool`
	Int   *int64        `| @Int`
}

//nolint:govet // participle grammar tags are not standard struct tags
type tupleLiteral struct {
	Open  bool    `@"("`
	Items []int64 `( @Int ","? )* ")"`
}

// dictLexer defines the tokens of the literal subset.
// Bool must precede anything that could match its prefix. Strings are
// never empty.
var dictLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Bool", Pattern: `True|False`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "String", Pattern: `'[^']+'`},
	{Name: "Punct", Pattern: `[{}():,]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// dictParser is the participle parser for header dictionaries.
var dictParser = participle.MustBuild[dictLiteral](
	participle.Lexer(dictLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a dictionary literal.
//
// A *errors.LexicalError is returned when no token matches at some offset,
// and a *errors.SyntaxError when the tokens do not form a dictionary.
func Parse(text string) (Dict, error) {
	if err := checkTokens(text); err != nil {
		return nil, err
	}

	parsed, err := dictParser.ParseString("", text)
	if err != nil {
		return nil, syntaxError(text, err)
	}

	dict := make(Dict, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		dict[unquote(entry.Key)] = entry.Value.value()
	}
	return dict, nil
}

func (v *valueLiteral) value() any {
	switch {
	case v.Tuple != nil:
		items := make([]int64, len(v.Tuple.Items))
		copy(items, v.Tuple.Items)
		return items
	case v.Str != nil:
		return unquote(*v.Str)
	case v.Bool != nil:
		return *v.Bool == "True"
	default:
		return *v.Int
	}
}

// checkTokens runs the lexer alone so lexical failures are reported
// separately from grammar failures.
func checkTokens(text string) error {
	lex, err := dictLexer.LexString("", text)
	if err != nil {
		return &errors.LexicalError{Pos: 0, Near: near(text, 0)}
	}

	pos := 0
	for {
		tok, err := lex.Next()
		if err != nil {
			return &errors.LexicalError{Pos: pos, Near: near(text, pos)}
		}
		if tok.EOF() {
			return nil
		}
		pos = tok.Pos.Offset + len(tok.Value)
	}
}

func syntaxError(text string, err error) error {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return &errors.SyntaxError{Message: err.Error()}
	}

	pos := perr.Position().Offset
	msg := perr.Message()
	serr := &errors.SyntaxError{Pos: pos, Message: msg}
	if i := strings.LastIndex(msg, "(expected "); i >= 0 && strings.HasSuffix(msg, ")") {
		serr.Expected = msg[i+len("(expected ") : len(msg)-1]
		serr.Actual = tokenAt(text, pos)
	}
	return serr
}

// tokenAt returns the token text starting at offset, or "EOF".
func tokenAt(text string, offset int) string {
	lex, err := dictLexer.LexString("", text)
	if err != nil {
		return near(text, offset)
	}
	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return "EOF"
		}
		if tok.Pos.Offset == offset {
			return tok.Value
		}
	}
}

func near(text string, offset int) string {
	if offset >= len(text) {
		return ""
	}
	end := offset + 8
	if end > len(text) {
		end = len(text)
	}
	return text[offset:end]
}

func unquote(s string) string {
	return s[1 : len(s)-1]
}

// Package lex provides the character-level tokenizer shared by the
// template parser and the utterance tokenizer. Both scan their input
// through a single compiled regex-DFA lexical specification built once
// at package init, rather than a hand-rolled rune-by-rune scanner.
package lex

import (
	"fmt"
	"io"
	"strings"
	"sync"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mldriver "github.com/nihei9/maleeni/driver"
	mlspec "github.com/nihei9/maleeni/spec"
)

// Kind identifies the lexical category of a Token.
type Kind string

const (
	LBracket Kind = "["
	RBracket Kind = "]"
	LParen   Kind = "("
	RParen   Kind = ")"
	Pipe     Kind = "|"
	Colon    Kind = ":"
	LBrace   Kind = "{"
	RBrace   Kind = "}"
	Bang     Kind = "!"
	Dollar   Kind = "$"
	Equals   Kind = "="
	Dot      Kind = "."
	LAngle   Kind = "<"
	RAngle   Kind = ">"
	Word     Kind = "word"
	Number   Kind = "number"
	Newline  Kind = "newline"
	EOF      Kind = "eof"
	Invalid  Kind = "invalid"
)

// Token is one lexical unit of a template source stream.
type Token struct {
	Kind Kind
	Text string
	Row  int
	Col  int
}

const (
	kindLBracket = mlspec.LexKindName("lbracket")
	kindRBracket = mlspec.LexKindName("rbracket")
	kindLParen   = mlspec.LexKindName("lparen")
	kindRParen   = mlspec.LexKindName("rparen")
	kindPipe     = mlspec.LexKindName("pipe")
	kindColon    = mlspec.LexKindName("colon")
	kindLBrace   = mlspec.LexKindName("lbrace")
	kindRBrace   = mlspec.LexKindName("rbrace")
	kindBang     = mlspec.LexKindName("bang")
	kindDollar   = mlspec.LexKindName("dollar")
	kindEquals   = mlspec.LexKindName("equals")
	kindDot      = mlspec.LexKindName("dot")
	kindLAngle   = mlspec.LexKindName("langle")
	kindRAngle   = mlspec.LexKindName("rangle")
	kindWord     = mlspec.LexKindName("word")
	kindNumber   = mlspec.LexKindName("number")
	kindNewline  = mlspec.LexKindName("newline")
	kindComment  = mlspec.LexKindName("comment")
	kindSpace    = mlspec.LexKindName("space")
)

var kindTable = map[mlspec.LexKindName]Kind{
	kindLBracket: LBracket,
	kindRBracket: RBracket,
	kindLParen:   LParen,
	kindRParen:   RParen,
	kindPipe:     Pipe,
	kindColon:    Colon,
	kindLBrace:   LBrace,
	kindRBrace:   RBrace,
	kindBang:     Bang,
	kindDollar:   Dollar,
	kindEquals:   Equals,
	kindDot:      Dot,
	kindLAngle:   LAngle,
	kindRAngle:   RAngle,
	kindWord:     Word,
	kindNumber:   Number,
	kindNewline:  Newline,
}

var (
	compiledOnce sync.Once
	compiled     *mlspec.CompiledLexSpec
	compileErr   error
)

func templateLexSpec() *mlspec.LexSpec {
	lit := func(kind mlspec.LexKindName, s string) *mlspec.LexEntry {
		return &mlspec.LexEntry{
			Kind:    kind,
			Pattern: mlspec.LexPattern(mlspec.EscapePattern(s)),
		}
	}

	return &mlspec.LexSpec{
		Name: "nlucore_template",
		Entries: []*mlspec.LexEntry{
			lit(kindLBracket, "["),
			lit(kindRBracket, "]"),
			lit(kindLParen, "("),
			lit(kindRParen, ")"),
			lit(kindPipe, "|"),
			lit(kindColon, ":"),
			lit(kindLBrace, "{"),
			lit(kindRBrace, "}"),
			lit(kindBang, "!"),
			lit(kindDollar, "$"),
			lit(kindEquals, "="),
			lit(kindDot, "."),
			lit(kindLAngle, "<"),
			lit(kindRAngle, ">"),
			{
				Kind:    kindNumber,
				Pattern: mlspec.LexPattern(`[0-9]+(\.[0-9]+)?`),
			},
			{
				Kind:    kindWord,
				Pattern: mlspec.LexPattern(`[A-Za-z_][A-Za-z0-9_'-]*`),
			},
			{
				Kind:    kindNewline,
				Pattern: mlspec.LexPattern(`\u{000D}?\u{000A}`),
			},
			{
				Kind:    kindComment,
				Pattern: mlspec.LexPattern(`(#|;)[^\u{000A}]*`),
			},
			{
				Kind:    kindSpace,
				Pattern: mlspec.LexPattern(`[ \u{0009}]+`),
			},
		},
	}
}

func compile() (*mlspec.CompiledLexSpec, error) {
	compiledOnce.Do(func() {
		var cErrs []*mlcompiler.CompileError
		compiled, compileErr, cErrs = mlcompiler.Compile(templateLexSpec(), mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
		if compileErr != nil && len(cErrs) > 0 {
			var b strings.Builder
			fmt.Fprintf(&b, "%v: %v", cErrs[0].Kind, cErrs[0].Cause)
			for _, e := range cErrs[1:] {
				fmt.Fprintf(&b, "; %v: %v", e.Kind, e.Cause)
			}
			compileErr = fmt.Errorf("lex: %s", b.String())
		}
	})
	return compiled, compileErr
}

// Lexer scans a template source stream into Tokens, collapsing runs of
// comments and spaces and folding a trailing "\" at end-of-line into a
// logical line join before tokens ever reach the parser.
type Lexer struct {
	d        *mldriver.Lexer
	spec     mldriver.LexSpec
	row, col int
}

func kindName(spec mldriver.LexSpec, tok *mldriver.Token) mlspec.LexKindName {
	_, name := spec.KindIDAndName(tok.ModeID, tok.ModeKindID)
	return mlspec.LexKindName(name)
}

// New constructs a Lexer over r. The continuation preprocessing ("\" at
// EOL joins the next physical line) happens once, up front, since the
// underlying DFA has no notion of logical vs. physical lines.
func New(r io.Reader) (*Lexer, error) {
	spec, err := compile()
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	wrapped := mldriver.NewLexSpec(spec)
	d, err := mldriver.NewLexer(wrapped, strings.NewReader(JoinContinuations(string(raw))))
	if err != nil {
		return nil, err
	}

	return &Lexer{d: d, spec: wrapped, row: 1, col: 1}, nil
}

// JoinContinuations removes a trailing "\" immediately before a newline
// and the newline itself, splicing the following physical
// line onto the current one. Exported so callers that classify lines
// themselves (the template parser) can apply the same join before
// splitting on "\n".
func JoinContinuations(src string) string {
	lines := strings.Split(src, "\n")
	var out []string
	buf := ""
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasSuffix(trimmed, `\`) {
			buf += strings.TrimSuffix(trimmed, `\`)
			continue
		}
		out = append(out, buf+trimmed)
		buf = ""
	}
	if buf != "" {
		out = append(out, buf)
	}
	return strings.Join(out, "\n")
}

// Next returns the next significant token: comments and horizontal
// whitespace are skipped, but Newline tokens are preserved since the
// template format is line-structured.
func (l *Lexer) Next() (Token, error) {
	for {
		tok, err := l.d.Next()
		if err != nil {
			return Token{}, err
		}
		if tok.EOF {
			return Token{Kind: EOF, Row: l.row, Col: l.col}, nil
		}
		if tok.Invalid {
			return Token{Kind: Invalid, Text: string(tok.Lexeme), Row: tok.Row + 1, Col: tok.Col + 1}, nil
		}

		kn := kindName(l.spec, tok)
		switch kn {
		case kindSpace, kindComment:
			continue
		case kindNewline:
			t := Token{Kind: Newline, Text: "\n", Row: tok.Row + 1, Col: tok.Col + 1}
			l.row = t.Row + 1
			l.col = 1
			return t, nil
		}

		kind, ok := kindTable[kn]
		if !ok {
			return Token{Kind: Invalid, Text: string(tok.Lexeme), Row: tok.Row + 1, Col: tok.Col + 1}, nil
		}

		return Token{Kind: kind, Text: string(tok.Lexeme), Row: tok.Row + 1, Col: tok.Col + 1}, nil
	}
}

// Term is one whitespace-delimited token of an utterance, with its
// start/end offsets expressed in runes (code points) into the original
// utterance, per the code-point-indexing decision recorded in
// DESIGN.md.
type Term struct {
	Text  string
	Start int
	End   int
}

// TokenizeWords splits an utterance into terms the same way the
// template lexer splits identifiers: through the compiled lexical
// specification's WORD/NUMBER rule, so punctuation the grammar never
// produces (stray commas, quotes) is dropped the same way it would be
// during grammar compilation rather than via an ad hoc strings.Fields.
func TokenizeWords(s string) ([]Term, error) {
	spec, err := compile()
	if err != nil {
		return nil, err
	}

	wrapped := mldriver.NewLexSpec(spec)
	d, err := mldriver.NewLexer(wrapped, strings.NewReader(s))
	if err != nil {
		return nil, err
	}

	runes := []rune(s)
	byteToRune := make(map[int]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteToRune[off] = i
		off += len(string(r))
	}
	byteToRune[off] = len(runes)

	var words []Term
	bytePos := 0
	for {
		tok, err := d.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF {
			break
		}
		if tok.Invalid {
			bytePos += len(tok.Lexeme)
			continue
		}
		switch kindName(wrapped, tok) {
		case kindWord, kindNumber:
		default:
			bytePos += len(tok.Lexeme)
			continue
		}
		text := string(tok.Lexeme)
		start := byteToRune[bytePos]
		bytePos += len(text)
		end := byteToRune[bytePos]
		words = append(words, Term{Text: text, Start: start, End: end})
	}
	return words, nil
}

package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openvoice/nlucore/ast"
	"github.com/openvoice/nlucore/errs"
	"github.com/openvoice/nlucore/lex"
)

// parseBody parses one rule or sentence body (everything after the
// "name =" prefix, or a whole sentence line) into a single AST node,
// following this expression grammar:
//
//	expr        := seq_elem (WS seq_elem)*
//	seq_elem    := atom substitution? tag? converters?
//	atom        := WORD | "[" expr_list "]" | "(" expr_list ")"
//	             | "<" rule_ref ">" | "$" slot_ref
//	expr_list   := expr ("|" expr)*
//	substitution:= ":" (WORD | "(" expr ")")
//	tag         := "{" tag_name (":" tag_sub)? converters? "}"
//	converters  := ("!" IDENT)+
func parseBody(body string, row int, path string) (ast.Node, error) {
	l, err := lex.New(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	p := &bodyParser{lx: l, row: row, path: path}
	if err := p.advance(); err != nil {
		return nil, err
	}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != lex.EOF && p.tok.Kind != lex.Newline {
		return nil, p.errf("unexpected %q", p.tok.Text)
	}
	return node, nil
}

type bodyParser struct {
	lx       *lex.Lexer
	tok      lex.Token
	pushback *lex.Token
	row      int
	path     string
}

func (p *bodyParser) errf(format string, args ...interface{}) *errs.ParseError {
	return &errs.ParseError{
		Path:  p.path,
		Row:   p.row,
		Col:   p.tok.Col,
		Cause: fmt.Errorf(format, args...),
	}
}

func (p *bodyParser) advance() error {
	if p.pushback != nil {
		p.tok = *p.pushback
		p.pushback = nil
		return nil
	}
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *bodyParser) expect(k lex.Kind) (lex.Token, error) {
	if p.tok.Kind != k {
		return lex.Token{}, p.errf("expected %q, found %q", k, p.tok.Text)
	}
	t := p.tok
	if err := p.advance(); err != nil {
		return lex.Token{}, err
	}
	return t, nil
}

func (p *bodyParser) atEnd() bool {
	return isSeqEnd(p.tok.Kind)
}

// parseExpr parses a "seq_elem (WS seq_elem)*" run, collapsing to a
// single node when there is only one element, otherwise wrapping in a
// SEQUENCE.
func (p *bodyParser) parseExpr() (ast.Node, error) {
	var items []ast.Node
	for !p.atEnd() {
		item, err := p.parseSeqElem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, p.errf("empty expression")
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &ast.Sequence{Mode: ast.SEQUENCE, Items: items}, nil
}

// parseExprList parses "expr ('|' expr)*", applying weight prefixes
// when more than one branch is present.
func (p *bodyParser) parseExprList() (ast.Node, error) {
	type branch struct {
		node   ast.Node
		weight float64
	}
	var branches []branch

	for {
		w, err := p.parseOptionalWeight()
		if err != nil {
			return nil, err
		}
		node, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch{node: node, weight: w})
		if p.tok.Kind != lex.Pipe {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if len(branches) == 1 {
		return branches[0].node, nil
	}

	items := make([]ast.Node, len(branches))
	weights := make([]float64, len(branches))
	for i, b := range branches {
		items[i] = b.node
		weights[i] = b.weight
	}
	return &ast.Sequence{Mode: ast.ALTERNATIVE, Items: items, Weights: ast.NormalizeWeights(weights)}, nil
}

// parseOptionalWeight consumes a leading "N " weight prefix for one
// alternative branch, e.g. the "2" in "(2 red | 1 blue)". A bare
// number with nothing following it on the same branch is not a weight
// but a literal WORD atom (e.g. the "2" in "(1 | 2)"); one
// token of lookahead disambiguates the two, using pushback since the
// underlying lexer has no peek of its own.
func (p *bodyParser) parseOptionalWeight() (float64, error) {
	if p.tok.Kind != lex.Number {
		return 0, nil
	}
	text := p.tok.Text

	next, err := p.lx.Next()
	if err != nil {
		return 0, err
	}
	p.pushback = &next

	if isSeqEnd(next.Kind) {
		// The number was the whole branch: leave it as the current
		// token so parseAtom consumes it as a literal WORD atom.
		return 0, nil
	}

	w, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, p.errf("malformed weight %q", text)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	return w, nil
}

func isSeqEnd(k lex.Kind) bool {
	switch k {
	case lex.EOF, lex.Newline, lex.RParen, lex.RBracket, lex.Pipe, lex.RBrace:
		return true
	default:
		return false
	}
}

// parseSeqElem parses "atom substitution? tag? converters?".
func (p *bodyParser) parseSeqElem() (ast.Node, error) {
	node, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	if p.tok.Kind == lex.Colon {
		out, err := p.parseSubstitution()
		if err != nil {
			return nil, err
		}
		node = applySubstitution(node, out)
	}

	if p.tok.Kind == lex.LBrace {
		node, err = p.parseTag(node)
		if err != nil {
			return nil, err
		}
	}

	if p.tok.Kind == lex.Bang {
		convs, err := p.parseConverters()
		if err != nil {
			return nil, err
		}
		node = applyConverters(node, convs)
	}

	return node, nil
}

func (p *bodyParser) parseAtom() (ast.Node, error) {
	switch p.tok.Kind {
	case lex.Word:
		w := &ast.Word{Input: p.tok.Text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return w, nil

	case lex.Number:
		// A number outside a weight-prefix position is just a literal
		// word (e.g. a sentence containing "2").
		w := &ast.Word{Input: p.tok.Text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return w, nil

	case lex.LBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.RBracket); err != nil {
			return nil, err
		}
		return &ast.Sequence{Mode: ast.OPTIONAL, Items: []ast.Node{inner}, Weights: []float64{0.5, 0.5}}, nil

	case lex.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.RParen); err != nil {
			return nil, err
		}
		return inner, nil

	case lex.LAngle:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.RAngle); err != nil {
			return nil, err
		}
		return &ast.RuleRef{Name: name}, nil

	case lex.Dollar:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(lex.Word)
		if err != nil {
			return nil, err
		}
		return &ast.SlotRef{Name: name.Text}, nil

	default:
		return nil, p.errf("unexpected %q, expected an atom", p.tok.Text)
	}
}

// parseDottedName parses "rule_ref" which may be "name" or
// "Intent.name"; the lexer tokenizes "." separately from WORD.
func (p *bodyParser) parseDottedName() (string, error) {
	first, err := p.expect(lex.Word)
	if err != nil {
		return "", err
	}
	if p.tok.Kind != lex.Dot {
		return first.Text, nil
	}
	if err := p.advance(); err != nil {
		return "", err
	}
	second, err := p.expect(lex.Word)
	if err != nil {
		return "", err
	}
	return first.Text + "." + second.Text, nil
}

// parseSubstitution parses ":" (WORD | "(" expr ")") and flattens the
// result into a literal word list, since a substitution's output is
// always plain text regardless of how it was grouped in the source.
func (p *bodyParser) parseSubstitution() ([]*ast.Word, error) {
	if _, err := p.expect(lex.Colon); err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case lex.Word, lex.Number:
		w := &ast.Word{Input: p.tok.Text, Output: p.tok.Text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return []*ast.Word{w}, nil
	case lex.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		var words []*ast.Word
		for p.tok.Kind == lex.Word || p.tok.Kind == lex.Number {
			words = append(words, &ast.Word{Input: p.tok.Text, Output: p.tok.Text})
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lex.RParen); err != nil {
			return nil, err
		}
		return words, nil
	default:
		// ":" with nothing following is an explicit empty output.
		return nil, nil
	}
}

// parseTag parses "{" tag_name (":" tag_sub)? converters? "}" and
// wraps inner in an ast.Tag.
func (p *bodyParser) parseTag(inner ast.Node) (ast.Node, error) {
	if _, err := p.expect(lex.LBrace); err != nil {
		return nil, err
	}
	name, err := p.expect(lex.Word)
	if err != nil {
		return nil, err
	}
	tag := &ast.Tag{Name: name.Text, Inner: inner}

	if p.tok.Kind == lex.Colon {
		sub, err := p.parseSubstitution()
		if err != nil {
			return nil, err
		}
		tag.SubstitutionOutput = sub
	}

	if p.tok.Kind == lex.Bang {
		convs, err := p.parseConverters()
		if err != nil {
			return nil, err
		}
		tag.Converters = convs
	}

	if _, err := p.expect(lex.RBrace); err != nil {
		return nil, err
	}
	return tag, nil
}

// parseConverters parses ("!" IDENT)+.
func (p *bodyParser) parseConverters() ([]string, error) {
	var out []string
	for p.tok.Kind == lex.Bang {
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(lex.Word)
		if err != nil {
			return nil, err
		}
		out = append(out, name.Text)
	}
	return out, nil
}

// applySubstitution attaches a substitution's output words to node,
// dispatching on concrete type since Word, Sequence, and Tag each carry
// substitution output differently.
func applySubstitution(node ast.Node, out []*ast.Word) ast.Node {
	switch n := node.(type) {
	case *ast.Word:
		n.Substitution = true
		if len(out) == 0 {
			n.Output = ""
			return n
		}
		if len(out) == 1 {
			n.Output = out[0].Output
			return n
		}
		// Multiple output words on a single Word atom: promote to a
		// SEQUENCE whose SubstitutionOutput carries the full phrase.
		return &ast.Sequence{Mode: ast.SEQUENCE, Items: []ast.Node{n}, SubstitutionOutput: out}
	case *ast.Sequence:
		n.SubstitutionOutput = out
		return n
	case *ast.Tag:
		n.SubstitutionOutput = out
		return n
	default:
		return &ast.Sequence{Mode: ast.SEQUENCE, Items: []ast.Node{node}, SubstitutionOutput: out}
	}
}

// applyConverters attaches a converter chain to node, dispatching on
// concrete type the same way applySubstitution does.
func applyConverters(node ast.Node, convs []string) ast.Node {
	if len(convs) == 0 {
		return node
	}
	switch n := node.(type) {
	case *ast.Word:
		n.Converters = append(n.Converters, convs...)
		return n
	case *ast.Sequence:
		n.Converters = append(n.Converters, convs...)
		return n
	case *ast.Tag:
		n.Converters = append(n.Converters, convs...)
		return n
	default:
		return node
	}
}

package lex

import (
	"strings"
	"testing"
)

func collect(t *testing.T, src string) []Token {
	t.Helper()
	l, err := New(strings.NewReader(src))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if tok.Kind == EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestNextTokenizesSentenceBody(t *testing.T) {
	toks := collect(t, "turn on [the] (living | kitchen){name}")
	want := []Kind{Word, Word, LBracket, Word, RBracket, LParen, Word, Pipe, Word, RParen, LBrace, Word, RBrace}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(toks), toks, len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d = %v, want kind %q", i, toks[i], k)
		}
	}
}

func TestNextSkipsCommentsAndSpaces(t *testing.T) {
	toks := collect(t, "red # a comment\nblue ; another\n")
	var words []string
	for _, tok := range toks {
		if tok.Kind == Word {
			words = append(words, tok.Text)
		}
	}
	if len(words) != 2 || words[0] != "red" || words[1] != "blue" {
		t.Fatalf("words = %v, want [red blue]", words)
	}
}

func TestNextDistinguishesNumbersFromWords(t *testing.T) {
	toks := collect(t, "2 red 1.5")
	if toks[0].Kind != Number || toks[0].Text != "2" {
		t.Fatalf("token 0 = %v, want number 2", toks[0])
	}
	if toks[1].Kind != Word || toks[1].Text != "red" {
		t.Fatalf("token 1 = %v, want word red", toks[1])
	}
	if toks[2].Kind != Number || toks[2].Text != "1.5" {
		t.Fatalf("token 2 = %v, want number 1.5", toks[2])
	}
}

func TestJoinContinuations(t *testing.T) {
	got := JoinContinuations("turn on \\\nthe light\nnext line\n")
	want := "turn on the light\nnext line\n"
	if got != want {
		t.Fatalf("JoinContinuations = %q, want %q", got, want)
	}
}

func TestTokenizeWordsRuneOffsets(t *testing.T) {
	words, err := TokenizeWords("turn on the light")
	if err != nil {
		t.Fatalf("TokenizeWords: %v", err)
	}
	want := []Term{
		{Text: "turn", Start: 0, End: 4},
		{Text: "on", Start: 5, End: 7},
		{Text: "the", Start: 8, End: 11},
		{Text: "light", Start: 12, End: 17},
	}
	if len(words) != len(want) {
		t.Fatalf("got %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("term %d = %+v, want %+v", i, words[i], want[i])
		}
	}
}

func TestTokenizeWordsEmptyUtterance(t *testing.T) {
	words, err := TokenizeWords("   ")
	if err != nil {
		t.Fatalf("TokenizeWords: %v", err)
	}
	if len(words) != 0 {
		t.Fatalf("got %v, want no terms", words)
	}
}

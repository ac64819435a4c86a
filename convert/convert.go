// Package convert implements the entity converter pipeline: a converter
// receives an entity's already-tokenized values and returns a new
// token list, so chains compose left to right without re-tokenizing
// between stages.
package convert

import (
	"fmt"
	"strconv"
	"strings"
)

// Func transforms a list of token strings into a new list. It may
// change the number of tokens (e.g. collapsing several number words
// into one digit string).
type Func func(tokens []string) ([]string, error)

// Table is a named registry of converter functions, resolved by name
// when a recognized entity's tag carries a converter chain.
type Table struct {
	fns map[string]Func
}

// Default returns the built-in converter table: int, float, bool,
// lower, upper.
func Default() *Table {
	t := &Table{fns: map[string]Func{}}
	t.fns["int"] = convertInt
	t.fns["float"] = convertFloat
	t.fns["bool"] = convertBool
	t.fns["lower"] = convertCase(strings.ToLower)
	t.fns["upper"] = convertCase(strings.ToUpper)
	return t
}

// With returns a copy of t with name bound to fn, overriding any
// existing converter of the same name. The receiver is left unmodified
// so a caller can derive several tables from one Default() base.
func (t *Table) With(name string, fn Func) *Table {
	out := &Table{fns: make(map[string]Func, len(t.fns)+1)}
	for k, v := range t.fns {
		out.fns[k] = v
	}
	out.fns[name] = fn
	return out
}

// Lookup returns the converter registered under name, or false if none
// is registered.
func (t *Table) Lookup(name string) (Func, bool) {
	fn, ok := t.fns[name]
	return fn, ok
}

// Apply runs chain's converters left to right over tokens. An unknown
// converter name returns an error the caller should surface as
// errs.RecognitionError.
func (t *Table) Apply(chain []string, tokens []string) ([]string, error) {
	cur := tokens
	for _, name := range chain {
		fn, ok := t.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown converter %q", name)
		}
		next, err := fn(cur)
		if err != nil {
			return nil, fmt.Errorf("converter %q: %w", name, err)
		}
		cur = next
	}
	return cur, nil
}

func convertInt(tokens []string) ([]string, error) {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", t)
		}
		out[i] = strconv.Itoa(n)
	}
	return out, nil
}

func convertFloat(tokens []string) ([]string, error) {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", t)
		}
		out[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return out, nil
}

func convertBool(tokens []string) ([]string, error) {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		switch strings.ToLower(t) {
		case "true", "yes", "on", "1":
			out[i] = "true"
		case "false", "no", "off", "0":
			out[i] = "false"
		default:
			return nil, fmt.Errorf("%q is not a boolean", t)
		}
	}
	return out, nil
}

func convertCase(f func(string) string) Func {
	return func(tokens []string) ([]string, error) {
		out := make([]string, len(tokens))
		for i, t := range tokens {
			out[i] = f(t)
		}
		return out, nil
	}
}

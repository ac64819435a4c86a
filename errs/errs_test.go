package errs

import (
	"errors"
	"testing"
)

func TestParseErrorFormatsPathRowCol(t *testing.T) {
	cause := errors.New("unexpected token")
	e := &ParseError{Path: "commands.tmpl", Row: 3, Col: 5, Cause: cause}
	want := "commands.tmpl:3:5: unexpected token"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(e, cause) {
		t.Fatalf("errors.Is(e, cause) = false, want true (Unwrap must expose Cause)")
	}
}

func TestParseErrorOmitsEmptyPath(t *testing.T) {
	e := &ParseError{Row: 1, Col: 1, Cause: errors.New("bad")}
	want := "1:1: bad"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestParseErrorsJoinsWithNewlines(t *testing.T) {
	es := ParseErrors{
		&ParseError{Row: 1, Col: 1, Cause: errors.New("first")},
		&ParseError{Row: 2, Col: 1, Cause: errors.New("second")},
	}
	want := "1:1: first\n2:1: second"
	if got := es.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestParseErrorsEmptyDoesNotPanic(t *testing.T) {
	var es ParseErrors
	if got := es.Error(); got != "no errors" {
		t.Fatalf("Error() = %q, want %q", got, "no errors")
	}
}

func TestExpansionErrorIncludesIntentWhenSet(t *testing.T) {
	e := &ExpansionError{Intent: "LightOn", Rule: "room", Reason: "cyclic rule reference"}
	if got := e.Error(); got != "expand LightOn.room: cyclic rule reference" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestRecognitionErrorMessage(t *testing.T) {
	e := &RecognitionError{Converter: "int", Entity: "value", Reason: "\"two\" is not an integer"}
	want := `recognize: converter "int" on entity "value": "two" is not an integer`
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

package deck

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Run("valid table preserves row order", func(t *testing.T) {
		content := "front,back,deck\nQ1,A1,Test\nQ2,A2,Test\n"
		cards, err := Parse([]byte(content))
		if err != nil {
			t.Fatalf("Parse() returned an unexpected error: %v", err)
		}
		if len(cards) != 2 {
			t.Fatalf("Expected 2 cards, but got %d", len(cards))
		}
		if cards[0].Front != "Q1" || cards[1].Front != "Q2" {
			t.Errorf("Expected Q1 then Q2, but got %s then %s", cards[0].Front, cards[1].Front)
		}
		if cards[0].Back != "A1" || cards[0].Deck != "Test" {
			t.Errorf("Unexpected first card: %+v", cards[0])
		}
	})

	t.Run("quoted values and extra columns", func(t *testing.T) {
		content := "id,front,back,deck,notes\n7,\"What is Python?\",\"A language, for scripting\",\"Programming\",ignored\n"
		cards, err := Parse([]byte(content))
		if err != nil {
			t.Fatalf("Parse() returned an unexpected error: %v", err)
		}
		if cards[0].Back != "A language, for scripting" {
			t.Errorf("Expected quoted comma to survive, but got '%s'", cards[0].Back)
		}
		if cards[0].Front != "What is Python?" || cards[0].Deck != "Programming" {
			t.Errorf("Unexpected card: %+v", cards[0])
		}
	})

	t.Run("values are not trimmed", func(t *testing.T) {
		cards, err := Parse([]byte("front,back,deck\n  Q  ,A,D\n"))
		if err != nil {
			t.Fatalf("Parse() returned an unexpected error: %v", err)
		}
		if cards[0].Front != "  Q  " {
			t.Errorf("Expected untransformed front, but got '%s'", cards[0].Front)
		}
	})
}

func TestParseFailures(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		want     error
		contains string
	}{
		{name: "empty bytes", input: "", want: ErrEmptyInput},
		{name: "header only", input: "front,back,deck\n", want: ErrEmptyInput},
		{name: "missing deck column", input: "front,back\nQ,A\n", want: ErrSchema, contains: "deck"},
		{name: "missing every column", input: "a,b\n1,2\n", want: ErrSchema, contains: "front, back, deck"},
		{name: "missing front and deck", input: "back\nA\n", want: ErrSchema, contains: "front, deck"},
		{name: "empty back value", input: "front,back,deck\nQ1,A1,D\nQ2,,D\n", want: ErrSchema, contains: "'back'"},
		{name: "first empty column wins", input: "front,back,deck\n,,\n", want: ErrSchema, contains: "'front'"},
		{name: "earlier column beats earlier row", input: "front,back,deck\nQ1,A1,\n,A2,D\n", want: ErrSchema, contains: "'front'"},
		{name: "short row", input: "front,back,deck\nQ,A\n", want: ErrSchema, contains: "'deck'"},
		{name: "row wider than header", input: "front,back,deck\nQ,A,D,X\n", want: ErrParse},
		{name: "bad quoting", input: "front,back,deck\n\"Q,A,D\n", want: ErrParse},
		{name: "not utf-8", input: "front,back,deck\n\xff,A,D\n", want: ErrParse},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse([]byte(tc.input))
			if !errors.Is(err, tc.want) {
				t.Fatalf("Expected error %v, but got %v", tc.want, err)
			}
			if cards != nil {
				t.Errorf("Expected no cards on failure, but got %d", len(cards))
			}
			if tc.contains != "" && !strings.Contains(err.Error(), tc.contains) {
				t.Errorf("Expected error to mention %q, but got %q", tc.contains, err.Error())
			}
		})
	}
}

func TestSchemaError(t *testing.T) {
	_, err := Parse([]byte("front,back,deck\nQ1,A1,D\nQ2,A2,\n"))
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected a *SchemaError, but got %v", err)
	}
	if schemaErr.Column != "deck" || schemaErr.Row != 2 {
		t.Errorf("Expected column 'deck' on row 2, but got '%s' on row %d", schemaErr.Column, schemaErr.Row)
	}
	if !strings.HasPrefix(schemaErr.Error(), "deck: ") {
		t.Errorf("Expected error to carry the package prefix, got %q", schemaErr.Error())
	}

	_, err = Parse([]byte("front,back,deck\nQ1,A1,\n,A2,D\nQ3,,D\n"))
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected a *SchemaError, but got %v", err)
	}
	if schemaErr.Column != "front" || schemaErr.Row != 2 {
		t.Errorf("Expected column 'front' on row 2, but got '%s' on row %d", schemaErr.Column, schemaErr.Row)
	}
	if !strings.HasPrefix(schemaErr.Error(), "deck: ") {
		t.Errorf("Expected error to carry the package prefix, got %q", schemaErr.Error())
	}
}

package deck

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/flashmem/internal/domain"
	"github.com/conorfennell/flashmem/internal/parser"
)

// RequiredColumns lists the header cells every deck table must carry,
// in the order they are reported when missing.
var RequiredColumns = []string{"front", "back", "deck"}

// row mirrors RequiredColumns; validator reports fields in declaration order.
type row struct {
	Front string `col:"front" validate:"required"`
	Back  string `col:"back" validate:"required"`
	Deck  string `col:"deck" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("col")
	})
	return v
}

// Parse turns raw CSV content into cards, preserving row order.
// Extra columns are ignored and values are returned untransformed.
func Parse(content []byte) ([]domain.Card, error) {
	table, err := parser.Parse(bytes.NewReader(content))
	if errors.Is(err, parser.ErrNoHeader) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var missing []string
	for _, col := range RequiredColumns {
		if table.Column(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	if len(table.Rows) == 0 {
		return nil, ErrEmptyInput
	}

	frontCol, backCol, deckCol := table.Column("front"), table.Column("back"), table.Column("deck")
	cards := make([]domain.Card, 0, len(table.Rows))
	// firstEmpty maps a column to the first (1-based) row where it is empty.
	firstEmpty := make(map[string]int)
	for i := range table.Rows {
		r := row{
			Front: table.Value(i, frontCol),
			Back:  table.Value(i, backCol),
			Deck:  table.Value(i, deckCol),
		}
		if err := validate.Struct(r); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return nil, fmt.Errorf("validating row %d: %w", i+1, err)
			}
			for _, fe := range fieldErrs {
				if _, ok := firstEmpty[fe.Field()]; !ok {
					firstEmpty[fe.Field()] = i + 1
				}
			}
			continue
		}
		cards = append(cards, domain.Card{Front: r.Front, Back: r.Back, Deck: r.Deck})
	}

	// Columns are checked in declaration order, so the reported column is
	// the first required one with any empty value.
	for _, col := range RequiredColumns {
		if rowNum, ok := firstEmpty[col]; ok {
			return nil, &SchemaError{Column: col, Row: rowNum}
		}
	}

	return cards, nil
}

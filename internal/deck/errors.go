package deck

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for deck loading.
// Use errors.Is to check: errors.Is(err, deck.ErrSchema)
var (
	ErrNotFound   = errors.New("deck: not found")
	ErrParse      = errors.New("deck: cannot parse table")
	ErrSchema     = errors.New("deck: schema mismatch")
	ErrEmptyInput = errors.New("deck: no cards in input")
)

// SchemaError reports a table that parsed but does not hold valid cards.
// Either Missing lists every absent required column, or Column names the
// first required column, in declaration order, holding an empty value on
// any row. Row is the first data row (1-based) where that column is empty.
type SchemaError struct {
	Missing []string
	Column  string
	Row     int
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("deck: missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("deck: column '%s' contains empty values (row %d)", e.Column, e.Row)
}

// Is makes every SchemaError match ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

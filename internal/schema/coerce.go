package schema

import (
	"fmt"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// CoercionStep describes one column's disposition when reconciling a
// declared schema against an actual schema: either "identity" (no cast
// needed), "cast" (a CAST to the declared type is required) or
// "relax_nullable" (the declared type is nullable but the actual column
// is not; the declared, more permissive, form wins).
type CoercionStep struct {
	Ordinal    int
	Name       string
	Declared   aqmodel.Field
	Actual     aqmodel.Field
	NeedsCast  bool
	RelaxNull  bool
}

// Coerce reconciles declared against actual column-by-column, by
// ordinal position (not by name lookup), per §4.3: a name mismatch at
// the same ordinal is always an error; a width difference always
// produces a cast; a declared-nullable/actual-non-nullable mismatch is
// resolved in favour of the declared (more permissive) nullability
// without needing a cast.
func Coerce(declared, actual []aqmodel.Field) ([]CoercionStep, error) {
	if len(declared) != len(actual) {
		return nil, aqerr.NewSchemaValidationError("count_mismatch",
			fmt.Sprintf("declared schema has %d fields, actual dataset has %d", len(declared), len(actual)))
	}

	steps := make([]CoercionStep, len(declared))
	for i := range declared {
		d := declared[i]
		a := actual[i]
		if d.Name != a.Name {
			return nil, aqerr.NewSchemaValidationError("name_mismatch",
				fmt.Sprintf("column %d: declared name %q does not match actual name %q", i, d.Name, a.Name))
		}

		step := CoercionStep{Ordinal: i, Name: d.Name, Declared: d, Actual: a}

		if !d.Type.Equal(a.Type) {
			step.NeedsCast = true
		}

		if d.Nullable && !a.Nullable {
			step.RelaxNull = true
		} else if !d.Nullable && a.Nullable {
			// Declared is stricter than the data: the declared
			// nullable=false cannot be honoured without dropping
			// potential nulls, so this is also surfaced as a cast
			// requirement; the cast itself does not reject nulls.
			step.NeedsCast = true
		}

		steps[i] = step
	}
	return steps, nil
}

// CastExpr builds the SQL expression selecting column at ordinal i under
// its declared name and type, either a bare identifier (identity) or a
// CAST(...) AS type.
func CastExpr(step CoercionStep) (string, error) {
	if !step.NeedsCast {
		return quoteIdent(step.Name), nil
	}
	target, err := ToDuckDB(step.Declared.Type)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CAST(%s AS %s) AS %s", quoteIdent(step.Actual.Name), target, quoteIdent(step.Declared.Name)), nil
}

// BuildCoercionQuery wraps a registered source table/view so that its
// projection matches the declared schema column-for-column, applying
// CastExpr to every step.
func BuildCoercionQuery(sourceTable string, declared, actual []aqmodel.Field) (string, error) {
	return buildCoercionQuery(quoteIdent(sourceTable), declared, actual)
}

// BuildCoercionQueryOverExpr is BuildCoercionQuery for a source that
// has no stable registered name of its own — a read-table-function
// expression read directly, rather than a probe view that would have
// to outlive the query referencing it.
func BuildCoercionQueryOverExpr(fromExpr string, declared, actual []aqmodel.Field) (string, error) {
	return buildCoercionQuery(fmt.Sprintf("(%s) AS _src", fromExpr), declared, actual)
}

func buildCoercionQuery(from string, declared, actual []aqmodel.Field) (string, error) {
	steps, err := Coerce(declared, actual)
	if err != nil {
		return "", err
	}
	exprs := make([]string, len(steps))
	for i, step := range steps {
		expr, err := CastExpr(step)
		if err != nil {
			return "", err
		}
		exprs[i] = expr
	}
	query := "SELECT "
	for i, e := range exprs {
		if i > 0 {
			query += ", "
		}
		query += e
	}
	query += fmt.Sprintf(" FROM %s", from)
	return query, nil
}

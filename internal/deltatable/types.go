package deltatable

import (
	"github.com/aqueducts-go/aqueducts/internal/schema"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// duckTypeOrVarchar converts a declared field's type to its DuckDB SQL
// type name, falling back to VARCHAR if the type cannot be converted
// (only used to type an empty placeholder selection).
func duckTypeOrVarchar(f aqmodel.Field) string {
	t, err := schema.ToDuckDB(f.Type)
	if err != nil {
		return "VARCHAR"
	}
	return t
}

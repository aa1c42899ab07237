package sqlctx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aqueducts-go/aqueducts/internal/schema"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// TableSchema returns the actual column list of a registered table or
// view, in ordinal order, as universal Fields.
func (s *Session) TableSchema(ctx context.Context, name string) ([]aqmodel.Field, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, fmt.Errorf("reflecting schema of %q: %w", name, err)
	}
	defer rows.Close()

	var fields []aqmodel.Field
	for rows.Next() {
		var colName, dataType, isNullable string
		if err := rows.Scan(&colName, &dataType, &isNullable); err != nil {
			return nil, err
		}
		dt, err := schema.FromDuckDB(dataType)
		if err != nil {
			return nil, err
		}
		fields = append(fields, aqmodel.Field{
			Name:     colName,
			Type:     dt,
			Nullable: isNullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("table or view %q not found", name)
	}
	return fields, nil
}

// DescribeQuery returns the column list a query would produce, without
// registering anything — used to reflect the schema of a read-table
// expression before deciding whether it needs coercing.
func (s *Session) DescribeQuery(ctx context.Context, query string) ([]aqmodel.Field, error) {
	rows, err := s.db.QueryContext(ctx, "DESCRIBE "+query)
	if err != nil {
		return nil, fmt.Errorf("describing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var fields []aqmodel.Field
	for rows.Next() {
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(sql.NullString)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		colName := dest[0].(*sql.NullString).String
		dataType := dest[1].(*sql.NullString).String
		nullable := dest[2].(*sql.NullString).String

		dt, err := schema.FromDuckDB(dataType)
		if err != nil {
			return nil, err
		}
		fields = append(fields, aqmodel.Field{
			Name:     colName,
			Type:     dt,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("describe returned no columns")
	}
	return fields, nil
}

// RowCount returns the number of rows currently in a registered table
// or view.
func (s *Session) RowCount(ctx context.Context, name string) (int64, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", quoteIdent(name)))
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

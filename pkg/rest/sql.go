package rest

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/restmap/restmap/pkg/resource"
)

// statement accumulates sanitized identifiers and numbered placeholders,
// in the style of pgx query building.
type statement struct {
	args []any
}

func (st *statement) placeholder(value any) string {
	st.args = append(st.args, value)
	return fmt.Sprintf("$%d", len(st.args))
}

func tableIdent(res *resource.Resource) string {
	return pgx.Identifier{res.SchemaName(), res.TableName}.Sanitize()
}

func columnIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func columnList(res *resource.Resource) (string, error) {
	cols, err := res.Columns()
	if err != nil {
		return "", err
	}
	idents := make([]string, len(cols))
	for i, col := range cols {
		idents[i] = columnIdent(col.Name)
	}
	return strings.Join(idents, ", "), nil
}

// buildSelectAll lists every row with all declared columns.
func buildSelectAll(res *resource.Resource) (string, error) {
	cols, err := columnList(res)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s", cols, tableIdent(res)), nil
}

// buildSelectByKey fetches one row by primary key ($1).
func buildSelectByKey(res *resource.Resource) (string, error) {
	cols, err := columnList(res)
	if err != nil {
		return "", err
	}
	pk, err := res.PrimaryKey()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		cols, tableIdent(res), columnIdent(pk)), nil
}

// buildInsert inserts the row's set columns, falling back to DEFAULT VALUES
// for an entirely empty row. The full row is returned so generated keys and
// column defaults come back to the caller.
func buildInsert(res *resource.Resource, row *resource.Row) (string, []any, error) {
	cols, err := res.Columns()
	if err != nil {
		return "", nil, err
	}

	var st statement
	var names, placeholders []string
	for _, col := range cols {
		v := row.Get(col.Name)
		if v == nil {
			continue
		}
		names = append(names, columnIdent(col.Name))
		placeholders = append(placeholders, st.placeholder(v))
	}

	if len(names) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", tableIdent(res)), nil, nil
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		tableIdent(res),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "))
	return query, st.args, nil
}

// buildUpdateByKey writes every non-key column of the row back, so a nil
// value clears the column. The primary key is the final placeholder.
func buildUpdateByKey(res *resource.Resource, row *resource.Row, key any) (string, []any, error) {
	cols, err := res.Columns()
	if err != nil {
		return "", nil, err
	}
	pk, err := res.PrimaryKey()
	if err != nil {
		return "", nil, err
	}

	var st statement
	var setClauses []string
	for _, col := range cols {
		if col.Name == pk {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = %s",
			columnIdent(col.Name), st.placeholder(row.Get(col.Name))))
	}
	if len(setClauses) == 0 {
		return "", nil, fmt.Errorf("rest: table %s has no non-key columns to update", res.TableName)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING *",
		tableIdent(res),
		strings.Join(setClauses, ", "),
		columnIdent(pk),
		st.placeholder(key))
	return query, st.args, nil
}

// buildDeleteByKey deletes one row by primary key ($1).
func buildDeleteByKey(res *resource.Resource) (string, error) {
	pk, err := res.PrimaryKey()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", tableIdent(res), columnIdent(pk)), nil
}

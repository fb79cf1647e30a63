package rest

import (
	"testing"

	"github.com/restmap/restmap/pkg/resource"
	"github.com/restmap/restmap/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personResource(t *testing.T) *resource.Resource {
	t.Helper()
	res := &resource.Resource{TableName: "person"}
	res.Bind(schema.Table{
		Schema: "public",
		Name:   "person",
		Type:   schema.RelationTable,
		Columns: []schema.Column{
			{Name: "id", DataType: "integer", IsPrimaryKey: true},
			{Name: "name", DataType: "text", IsNullable: true},
			{Name: "quantity", DataType: "integer", IsNullable: true},
		},
		PrimaryKeys: []string{"id"},
	})
	return res
}

func TestBuildSelectAll(t *testing.T) {
	query, err := buildSelectAll(personResource(t))
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name", "quantity" FROM "public"."person"`, query)
}

func TestBuildSelectByKey(t *testing.T) {
	query, err := buildSelectByKey(personResource(t))
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name", "quantity" FROM "public"."person" WHERE "id" = $1`, query)
}

func TestBuildSelectByKeyWithoutPrimaryKey(t *testing.T) {
	res := &resource.Resource{TableName: "log"}
	res.Bind(schema.Table{
		Schema:  "public",
		Name:    "log",
		Columns: []schema.Column{{Name: "message", DataType: "text"}},
	})

	_, err := buildSelectByKey(res)
	assert.ErrorIs(t, err, resource.ErrNoPrimaryKey)
}

func TestBuildInsert(t *testing.T) {
	res := personResource(t)
	row, err := res.NewRow()
	require.NoError(t, err)
	row.Set("name", "Ada")
	row.Set("quantity", 7)

	query, args, err := buildInsert(res, row)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "public"."person" ("name", "quantity") VALUES ($1, $2) RETURNING *`, query)
	assert.Equal(t, []any{"Ada", 7}, args)
}

func TestBuildInsertEmptyRow(t *testing.T) {
	res := personResource(t)
	row, err := res.NewRow()
	require.NoError(t, err)

	query, args, err := buildInsert(res, row)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "public"."person" DEFAULT VALUES RETURNING *`, query)
	assert.Empty(t, args)
}

func TestBuildUpdateByKey(t *testing.T) {
	res := personResource(t)
	row, err := res.NewRow()
	require.NoError(t, err)
	row.Set("name", "Grace")
	// quantity stays unset, so the update writes NULL for it

	query, args, err := buildUpdateByKey(res, row, "3")
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "public"."person" SET "name" = $1, "quantity" = $2 WHERE "id" = $3 RETURNING *`, query)
	assert.Equal(t, []any{"Grace", nil, "3"}, args)
}

func TestBuildDeleteByKey(t *testing.T) {
	query, err := buildDeleteByKey(personResource(t))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "public"."person" WHERE "id" = $1`, query)
}

func TestIdentifiersAreQuoted(t *testing.T) {
	res := &resource.Resource{TableName: "user", Schema: "auth"}
	res.Bind(schema.Table{
		Schema:      "auth",
		Name:        "user",
		Columns:     []schema.Column{{Name: "select", DataType: "text", IsPrimaryKey: true}},
		PrimaryKeys: []string{"select"},
	})

	query, err := buildDeleteByKey(res)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "auth"."user" WHERE "select" = $1`, query)
}

package resource

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPersonRow(t *testing.T) *Row {
	t.Helper()
	row, err := boundPersonResource(t).NewRow()
	require.NoError(t, err)
	return row
}

func TestNewRowRequiresBind(t *testing.T) {
	res := &Resource{TableName: "person"}
	_, err := res.NewRow()
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestAsMapKeys(t *testing.T) {
	row := newPersonRow(t)
	row.Set("id", 3)
	row.Set("name", "Ada")

	out := row.AsMap()
	assert.Len(t, out, 5) // four columns plus links

	assert.Equal(t, 3, out["id"])
	assert.Equal(t, "Ada", out["name"])
	assert.Nil(t, out["quantity"])
	assert.Nil(t, out["price"])
	assert.Contains(t, out, "links")
}

func TestAsMapExcludesUndeclaredValues(t *testing.T) {
	row := newPersonRow(t)
	row.Set("id", 1)
	row.Set("favorite_color", "blue") // not a column, silently dropped

	out := row.AsMap()
	assert.NotContains(t, out, "favorite_color")
	assert.Nil(t, row.Get("favorite_color"))
}

func TestRoundTrip(t *testing.T) {
	row := newPersonRow(t)
	row.Set("id", 3)
	row.Set("name", "Ada")
	row.Set("quantity", 7)

	dict := row.AsMap()

	clone := newPersonRow(t)
	clone.ApplyPartial(dict)

	for _, col := range []string{"id", "name", "quantity"} {
		assert.Equal(t, row.Get(col), clone.Get(col), col)
	}
}

func TestApplyPartialSkipsFalsyValues(t *testing.T) {
	row := newPersonRow(t)
	row.Set("quantity", 5)

	// zero is falsy, so it is not applied; documented quirk of the
	// partial-update path (only Replace can null a column)
	row.ApplyPartial(map[string]any{"quantity": 0})
	assert.Equal(t, 5, row.Get("quantity"))

	row.ApplyPartial(map[string]any{"quantity": float64(0)})
	assert.Equal(t, 5, row.Get("quantity"))

	row.ApplyPartial(map[string]any{"quantity": nil})
	assert.Equal(t, 5, row.Get("quantity"))

	row.Set("name", "Ada")
	row.ApplyPartial(map[string]any{"name": ""})
	assert.Equal(t, "Ada", row.Get("name"))
}

func TestApplyPartialSkipsAbsentColumns(t *testing.T) {
	row := newPersonRow(t)
	row.Set("name", "Ada")

	row.ApplyPartial(map[string]any{"quantity": 2})
	assert.Equal(t, "Ada", row.Get("name"))
	assert.Equal(t, 2, row.Get("quantity"))
}

func TestReplaceNullsAbsentColumns(t *testing.T) {
	row := newPersonRow(t)
	row.Set("id", 3)
	row.Set("name", "Ada")
	row.Set("quantity", 5)

	row.Replace(map[string]any{"name": "Grace"})

	assert.Nil(t, row.Get("id"))
	assert.Equal(t, "Grace", row.Get("name"))
	assert.Nil(t, row.Get("quantity"))
}

func TestReplaceEmptyInputNullsEverything(t *testing.T) {
	row := newPersonRow(t)
	row.Set("id", 3)
	row.Set("name", "Ada")
	row.Set("quantity", 5)

	row.Replace(map[string]any{})

	for _, col := range []string{"id", "name", "quantity", "price"} {
		assert.Nil(t, row.Get(col), col)
	}
}

func TestReplaceIdempotent(t *testing.T) {
	in := map[string]any{"id": 3, "name": "Ada", "quantity": 0}

	once := newPersonRow(t)
	once.Replace(in)

	twice := newPersonRow(t)
	twice.Replace(in)
	twice.Replace(in)

	for _, col := range []string{"id", "name", "quantity", "price"} {
		assert.Equal(t, once.Get(col), twice.Get(col), col)
	}

	// the falsy quirk carries over: an explicit zero still ends up nil
	assert.Nil(t, once.Get("quantity"))
}

func TestAsMapDecimalExactString(t *testing.T) {
	row := newPersonRow(t)
	row.Set("price", pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true})

	out := row.AsMap()
	assert.Equal(t, "12.50", out["price"])
}

func TestResourceURI(t *testing.T) {
	row := newPersonRow(t)
	row.Set("id", 3)
	assert.Equal(t, "/persons/3", row.ResourceURI())
}

func TestResourceURIWithoutKey(t *testing.T) {
	row := newPersonRow(t)
	assert.Equal(t, "/persons/", row.ResourceURI())
}

func TestLinksSelf(t *testing.T) {
	row := newPersonRow(t)
	row.Set("id", 3)

	links := row.Links()
	require.Len(t, links, 1)
	assert.Equal(t, Link{Rel: "self", URI: "/persons/3"}, links[0])
}

func TestEndToEndPersonScenario(t *testing.T) {
	res := &Resource{TableName: "person"}
	res.Bind(personTable())
	assert.Equal(t, "persons", res.EndpointName())

	row, err := res.NewRow()
	require.NoError(t, err)
	row.Set("id", 3)

	assert.Equal(t, "/persons/3", row.ResourceURI())
	assert.Equal(t, []Link{{Rel: "self", URI: "/persons/3"}}, row.Links())

	out := row.AsMap()
	assert.Equal(t, row.Links(), out["links"])
}

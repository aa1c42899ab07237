package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
)

func TestRender_SubstitutesKnownParams(t *testing.T) {
	out, err := Render("select * from ${table} where a = ${a}", map[string]string{
		"table": "orders",
		"a":     "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "select * from orders where a = 1", out)
}

func TestRender_UnresolvedReportsAllKeys(t *testing.T) {
	_, err := Render("${a} ${b} ${a}", map[string]string{"a": "x"})
	require.Error(t, err)

	var unresolved *aqerr.TemplateError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []string{"b"}, unresolved.Keys)
	assert.Equal(t, "template", aqerr.Category(err))
}

func TestRender_NoPlaceholders(t *testing.T) {
	out, err := Render("select 1", nil)
	require.NoError(t, err)
	assert.Equal(t, "select 1", out)
}

func TestRender_LiteralNoEscaping(t *testing.T) {
	out, err := Render("${x}", map[string]string{"x": "${y}"})
	require.Error(t, err)
	assert.Empty(t, out)

	var unresolved *aqerr.TemplateError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []string{"y"}, unresolved.Keys)
}

package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

func TestCoerce_NameMismatchFails(t *testing.T) {
	declared := []aqmodel.Field{{Name: "a", Type: aqmodel.Primitive(aqmodel.KindInt32)}}
	actual := []aqmodel.Field{{Name: "b", Type: aqmodel.Primitive(aqmodel.KindInt32)}}

	_, err := Coerce(declared, actual)
	require.Error(t, err)

	var svErr *aqerr.SchemaValidationError
	require.True(t, errors.As(err, &svErr))
	assert.Equal(t, "name_mismatch", svErr.Kind)
}

func TestCoerce_WidthMismatchRequiresCast(t *testing.T) {
	declared := []aqmodel.Field{{Name: "a", Type: aqmodel.Primitive(aqmodel.KindInt64)}}
	actual := []aqmodel.Field{{Name: "a", Type: aqmodel.Primitive(aqmodel.KindInt32)}}

	steps, err := Coerce(declared, actual)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.True(t, steps[0].NeedsCast)
}

func TestCoerce_NullableRelaxedWithoutCast(t *testing.T) {
	declared := []aqmodel.Field{{Name: "a", Type: aqmodel.Primitive(aqmodel.KindInt32), Nullable: true}}
	actual := []aqmodel.Field{{Name: "a", Type: aqmodel.Primitive(aqmodel.KindInt32), Nullable: false}}

	steps, err := Coerce(declared, actual)
	require.NoError(t, err)
	assert.True(t, steps[0].RelaxNull)
	assert.False(t, steps[0].NeedsCast)
}

func TestCoerce_CountMismatchFails(t *testing.T) {
	declared := []aqmodel.Field{{Name: "a", Type: aqmodel.Primitive(aqmodel.KindInt32)}}
	_, err := Coerce(declared, nil)
	require.Error(t, err)

	var svErr *aqerr.SchemaValidationError
	require.True(t, errors.As(err, &svErr))
	assert.Equal(t, "count_mismatch", svErr.Kind)
}

package aqmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTypeString_LeafTypes(t *testing.T) {
	cases := map[string]Kind{
		"int32":  KindInt32,
		"INT64":  KindInt64,
		"string": KindUtf8,
		"boolean": KindBool,
	}
	for s, want := range cases {
		dt, err := ParseTypeString(s)
		require.NoError(t, err, s)
		require.Equal(t, want, dt.Kind, s)
	}
}

func TestParseTypeString_UnknownLeafFails(t *testing.T) {
	_, err := ParseTypeString("not_a_type")
	require.Error(t, err)
}

func TestParseTypeString_List(t *testing.T) {
	dt, err := ParseTypeString("list<string>")
	require.NoError(t, err)
	require.Equal(t, KindList, dt.Kind)
	require.NotNil(t, dt.Elem)
	require.Equal(t, KindUtf8, dt.Elem.Kind)
}

func TestParseTypeString_NestedList(t *testing.T) {
	dt, err := ParseTypeString("list<list<int32>>")
	require.NoError(t, err)
	require.Equal(t, KindList, dt.Kind)
	require.Equal(t, KindList, dt.Elem.Kind)
	require.Equal(t, KindInt32, dt.Elem.Elem.Kind)
}

func TestParseTypeString_Decimal(t *testing.T) {
	dt, err := ParseTypeString("decimal<10,2>")
	require.NoError(t, err)
	require.Equal(t, KindDecimal128, dt.Kind)
	require.Equal(t, 10, dt.Precision)
	require.Equal(t, 2, dt.Scale)
}

func TestParseTypeString_MalformedMissingClosingBracket(t *testing.T) {
	_, err := ParseTypeString("list<string")
	require.Error(t, err)
}

func TestParseTypeString_StructWithNestedListField(t *testing.T) {
	dt, err := ParseTypeString("struct<a:int32,b:list<string>>")
	require.NoError(t, err)
	require.Equal(t, KindStruct, dt.Kind)
	require.Len(t, dt.Fields, 2)
	require.Equal(t, "a", dt.Fields[0].Name)
	require.Equal(t, KindInt32, dt.Fields[0].Type.Kind)
	require.Equal(t, "b", dt.Fields[1].Name)
	require.Equal(t, KindList, dt.Fields[1].Type.Kind)
}

func TestParseTypeString_StructFieldNullabilityMarkers(t *testing.T) {
	dt, err := ParseTypeString("struct<a:!int32,b:string?>")
	require.NoError(t, err)
	require.False(t, dt.Fields[0].Nullable)
	require.True(t, dt.Fields[1].Nullable)
}

func TestParseTypeString_Map(t *testing.T) {
	dt, err := ParseTypeString("map<string,int32>")
	require.NoError(t, err)
	require.Equal(t, KindMap, dt.Kind)
	require.Equal(t, KindUtf8, dt.KeyType.Kind)
	require.Equal(t, KindInt32, dt.ValueType.Kind)
}

func TestParseTypeString_FixedSizeBinary(t *testing.T) {
	dt, err := ParseTypeString("fixed_size_binary<16>")
	require.NoError(t, err)
	require.Equal(t, KindFixedSizeBinary, dt.Kind)
	require.Equal(t, 16, dt.Width)
}

func TestParseTypeString_RoundTripsThroughString(t *testing.T) {
	for _, s := range []string{"int64", "boolean", "list<string>"} {
		dt, err := ParseTypeString(s)
		require.NoError(t, err)
		reparsed, err := ParseTypeString(dt.String())
		require.NoError(t, err)
		require.True(t, dt.Equal(reparsed), "%s round-tripped to %s", s, dt.String())
	}
}

package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalIRValue(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"items":["a","b"],"threshold":2,"ok":true,"none":null}`))
	require.NoError(t, err)

	obj, ok := v.(IRObject)
	require.True(t, ok)
	assert.Equal(t, IRArray{IRString("a"), IRString("b")}, obj["items"])
	assert.Equal(t, IRInt(2), obj["threshold"])
	assert.Equal(t, IRBool(true), obj["ok"])
	assert.Equal(t, IRNull{}, obj["none"])
}

func TestUnmarshalIRValueRejectsFloats(t *testing.T) {
	for _, input := range []string{`1.5`, `{"x":1e3}`, `[1,2.0]`} {
		_, err := UnmarshalIRValue([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestFromAnyYAMLShapes(t *testing.T) {
	v, err := FromAny(map[string]any{
		"items": []any{"x", 3},
		"flag":  false,
	})
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"items": IRArray{IRString("x"), IRInt(3)},
		"flag":  IRBool(false),
	}, v)

	_, err = FromAny(map[string]any{"bad": 0.5})
	assert.Error(t, err)
}

func TestObjectFromAnyNil(t *testing.T) {
	obj, err := ObjectFromAny(nil)
	require.NoError(t, err)
	assert.NotNil(t, obj)
	assert.Empty(t, obj)
}

func TestIRObjectAccessors(t *testing.T) {
	obj := IRObject{
		"reason":    IRString("timeout"),
		"threshold": IRInt(3),
		"numeric":   IRString("12"),
		"items":     IRArray{IRString("a")},
	}

	s, ok := obj.String("reason")
	assert.True(t, ok)
	assert.Equal(t, "timeout", s)

	s, ok = obj.String("threshold")
	assert.True(t, ok)
	assert.Equal(t, "3", s)

	n, ok := obj.Int("numeric")
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	_, ok = obj.Int("reason")
	assert.False(t, ok)

	arr, ok := obj.Array("items")
	assert.True(t, ok)
	assert.Len(t, arr, 1)

	_, ok = obj.String("missing")
	assert.False(t, ok)
}

func TestIRObjectJSONSortedKeys(t *testing.T) {
	obj := IRObject{"b": IRInt(1), "a": IRArray{IRBool(true)}}
	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true],"b":1}`, string(out))

	var back IRObject
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, obj, back)
}

func TestToAny(t *testing.T) {
	got := ToAny(IRObject{"n": IRInt(1), "xs": IRArray{IRString("a")}})
	assert.Equal(t, map[string]any{"n": int64(1), "xs": []any{"a"}}, got)
	assert.Nil(t, ToAny(IRNull{}))
}

func TestCloneIsIndependent(t *testing.T) {
	orig := IRObject{"a": IRInt(1)}
	c := orig.Clone()
	c["b"] = IRInt(2)
	assert.Len(t, orig, 1)

	var nilObj IRObject
	assert.NotNil(t, nilObj.Clone())
}

package vars

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Value
		expected bool
	}{
		{"same strings", String("a"), String("a"), true},
		{"different strings", String("a"), String("b"), false},
		{"same numbers", Number(1), Number(1), true},
		{"number vs numeric string", Number(1), String("1"), false},
		{"bool vs string", Bool(true), String("true"), false},
		{"same bools", Bool(false), Bool(false), true},
		{"invalid values", Value{}, Value{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Equal(tt.a, tt.b))
		})
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`2.5`), &v))
	assert.Equal(t, KindNumber, v.Kind())
	assert.Equal(t, 2.5, v.AsNumber())

	require.NoError(t, json.Unmarshal([]byte(`"hello"`), &v))
	assert.Equal(t, KindString, v.Kind())
	assert.Equal(t, "hello", v.AsString())

	require.NoError(t, json.Unmarshal([]byte(`true`), &v))
	assert.True(t, v.AsBool())

	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.False(t, v.IsValid(), "null decodes to the invalid value")
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestValue_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Value{"n": Number(3), "s": String("x"), "b": Bool(true)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":3,"s":"x","b":true}`, string(data))

	data, err = json.Marshal(Value{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Value{}, back)
}

func TestStore_UndefinedIsNotFalsy(t *testing.T) {
	s := NewStore()
	s.Set("flag", Bool(false))

	v, ok := s.Get("flag")
	assert.True(t, ok)
	assert.False(t, v.AsBool())

	_, ok = s.Get("missing")
	assert.False(t, ok)

	var nilStore Store
	_, ok = nilStore.Get("anything")
	assert.False(t, ok)
}

func TestStore_LastWriteWins(t *testing.T) {
	s := NewStore()
	s.Set("trust", Number(1))
	s.SetAll(map[string]Value{"trust": Number(2), "name": String("Ada")})
	s.Set("ignored", Value{})

	v, _ := s.Get("trust")
	assert.Equal(t, 2.0, v.AsNumber())
	assert.Equal(t, []string{"name", "trust"}, s.Names())

	clone := s.Clone()
	clone.Set("trust", Number(9))
	v, _ = s.Get("trust")
	assert.Equal(t, 2.0, v.AsNumber(), "clone must not alias the original")
}

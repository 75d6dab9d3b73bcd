package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
		text string
	}{
		{"nil", nil, KindNull, ""},
		{"string", "hi", KindString, "hi"},
		{"int", 90, KindNumber, "90"},
		{"float", 1.25, KindNumber, "1.25"},
		{"bool", true, KindBool, "true"},
		{"list", []any{"a", 1}, KindList, `["a",1]`},
		{"map", map[string]string{"k": "v"}, KindMap, `{"k":"v"}`},
		{"fallback", struct{ X int }{1}, KindString, "{1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValueOf(tt.in)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.text, v.Text())
		})
	}
}

func TestValueCodecs(t *testing.T) {
	orig := Map(map[string]Value{
		"n":    Number(3),
		"s":    String("x"),
		"b":    Bool(false),
		"null": {},
		"list": List(Number(1), String("two")),
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(orig)
		require.NoError(t, err)
		var back Value
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, orig.Equal(back), "got %s", back.Text())
	})

	t.Run("yaml", func(t *testing.T) {
		data, err := yaml.Marshal(orig)
		require.NoError(t, err)
		var back Value
		require.NoError(t, yaml.Unmarshal(data, &back))
		assert.True(t, orig.Equal(back), "got %s", back.Text())
	})
}

func TestParamsAccessors(t *testing.T) {
	p := Params{}
	p.Set("seconds", "2.5")
	p.Set("count", 3)
	p.Set("ratio", 0.5)
	p.Set("flag", "true")
	p.Set("word", "abc")
	p.Set("headers", map[string]any{"X-Id": 7})

	f, ok := p.Float("seconds")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = p.Float("word")
	assert.False(t, ok)
	assert.Equal(t, 9.0, p.FloatOr("missing", 9))

	n, ok := p.Int("count")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	_, ok = p.Int("ratio")
	assert.False(t, ok, "non-integral numbers are not ints")

	b, ok := p.Bool("flag")
	assert.True(t, ok)
	assert.True(t, b)
	_, ok = p.Bool("word")
	assert.False(t, ok)

	assert.Equal(t, "3", p.String("count", ""))
	assert.Equal(t, "def", p.String("missing", "def"))
	assert.Equal(t, map[string]string{"X-Id": "7"}, p.StringMap("headers"))
	assert.Nil(t, p.StringMap("word"))

	assert.Equal(t, []string{"count", "flag", "headers", "ratio", "seconds", "word"}, p.Keys())

	cp := p.Clone()
	cp.Set("word", "changed")
	assert.Equal(t, "abc", p.String("word", ""))
	assert.False(t, p.Equal(cp))
	cp.Set("word", "abc")
	assert.True(t, p.Equal(cp))
}

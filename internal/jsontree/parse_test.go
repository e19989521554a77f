package jsontree

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesMemberOrder(t *testing.T) {
	t.Parallel()

	root, err := Parse([]byte(`{"zeta":1,"alpha":"a","mid":[true,null]}`), 0)
	require.NoError(t, err)
	require.Equal(t, Object, root.Kind())

	keys := make([]string, 0, root.Len())
	for _, m := range root.Members() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)

	mid, ok := root.Get("mid")
	require.True(t, ok)
	require.Equal(t, Array, mid.Kind())
	require.Len(t, mid.Items(), 2)

	b, ok := mid.Items()[0].BoolValue()
	assert.True(t, ok)
	assert.True(t, b)
	assert.Equal(t, Null, mid.Items()[1].Kind())
}

func TestParse_ScalarsKeepTheirLiterals(t *testing.T) {
	t.Parallel()

	root, err := Parse([]byte(`{"n":42.0,"s":"42","big":12345678901234567890}`), 0)
	require.NoError(t, err)

	n, _ := root.Get("n")
	num, ok := n.Num()
	require.True(t, ok)
	assert.Equal(t, json.Number("42.0"), num)

	s, _ := root.Get("s")
	str, ok := s.Str()
	require.True(t, ok)
	assert.Equal(t, "42", str)

	_, ok = s.Num()
	assert.False(t, ok)

	big, _ := root.Get("big")
	num, ok = big.Num()
	require.True(t, ok)
	assert.Equal(t, json.Number("12345678901234567890"), num)
}

func TestParse_DuplicateKeysLastWins(t *testing.T) {
	t.Parallel()

	root, err := Parse([]byte(`{"name":"first","name":"second"}`), 0)
	require.NoError(t, err)

	v, ok := root.Get("name")
	require.True(t, ok)
	s, _ := v.Str()
	assert.Equal(t, "second", s)
	assert.Equal(t, 2, root.Len())
}

func TestParse_MalformedInput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unterminated object": `{not json`,
		"truncated":           `{"a":[1,2`,
		"empty":               ``,
		"whitespace only":     "   \n",
		"trailing garbage":    `{"a":1} x`,
		"two documents":       `{} {}`,
		"bad literal":         `[tru]`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			root, err := Parse([]byte(input), 0)
			require.Error(t, err)
			assert.Nil(t, root)
			assert.ErrorIs(t, err, ErrParse)

			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestParse_DepthLimit(t *testing.T) {
	t.Parallel()

	deep := strings.Repeat("[", 10) + strings.Repeat("]", 10)

	_, err := Parse([]byte(deep), 10)
	require.NoError(t, err)

	root, err := Parse([]byte(deep), 9)
	require.Error(t, err)
	assert.Nil(t, root)
	assert.ErrorIs(t, err, ErrDepthExceeded)
	assert.NotErrorIs(t, err, ErrParse)
}

func TestNode_NilBehavesAsNull(t *testing.T) {
	t.Parallel()

	var n *Node
	assert.Equal(t, Null, n.Kind())
	assert.Nil(t, n.Items())
	assert.Nil(t, n.Members())
	_, ok := n.Get("x")
	assert.False(t, ok)
	_, ok = n.Str()
	assert.False(t, ok)
	assert.Equal(t, 0, n.Len())
}

func TestNode_Constructors(t *testing.T) {
	t.Parallel()

	obj := NewObject(
		Member{Key: "name", Value: NewString("Women")},
		Member{Key: "items", Value: NewArray(NewNumber("1"), NewBool(false))},
	)

	assert.True(t, obj.IsObject())
	items, ok := obj.Get("items")
	require.True(t, ok)
	assert.True(t, items.IsArray())
	assert.Equal(t, 2, items.Len())
	assert.Equal(t, "object", obj.Kind().String())
}

package compression

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseDictionary_Substitute(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single word", input: "the", expected: "†"},
		{name: "inside a word", input: "the weather", expected: "† wea†r"},
		{name: "earlier entry wins", input: "there", expected: "†re"},
		{name: "ion before tion", input: "nation", expected: "nat¶"},
		{name: "several entries", input: "which way about that", expected: "√ way ≈ ©"},
		{name: "no match", input: "xyz", expected: "xyz"},
		{name: "empty", input: "", expected: ""},
	}

	d := BaseDictionary()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.Substitute(tt.input))
		})
	}
}

func TestBaseDictionary_RoundTrip(t *testing.T) {
	inputs := []string{
		"the weather there is fine and the nation is able to move",
		"with your treatment from this moment you should have light",
		"about which thing",
	}
	d := BaseDictionary()
	for _, in := range inputs {
		assert.Equal(t, in, d.Desubstitute(d.Substitute(in)))
	}
}

func TestBaseDictionary_IsCopy(t *testing.T) {
	d := BaseDictionary()
	require.Len(t, d, 18)
	d[0].From = "changed"

	code, ok := BaseDictionary().Code("the")
	assert.True(t, ok)
	assert.Equal(t, '†', code)
}

func TestPatternTable_JSONKeepsOrder(t *testing.T) {
	var table PatternTable
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":"ζ","alpha":"α"}`), &table))
	require.Len(t, table, 2)
	assert.Equal(t, Pattern{From: "zeta", To: 'ζ'}, table[0])
	assert.Equal(t, Pattern{From: "alpha", To: 'α'}, table[1])

	out, err := json.Marshal(table)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"ζ","alpha":"α"}`, string(out))
}

func TestPatternTable_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "multi character code", input: `{"x":"ab"}`},
		{name: "empty code", input: `{"x":""}`},
		{name: "duplicate key", input: `{"x":"α","x":"β"}`},
		{name: "not an object", input: `["x"]`},
		{name: "non string value", input: `{"x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var table PatternTable
			assert.Error(t, json.Unmarshal([]byte(tt.input), &table))
		})
	}
}

func TestPatternTable_UnmarshalNull(t *testing.T) {
	table := PatternTable{{From: "x", To: 'α'}}
	require.NoError(t, json.Unmarshal([]byte(`null`), &table))
	assert.Nil(t, table)
}

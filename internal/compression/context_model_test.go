package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextModel_Analyze(t *testing.T) {
	m := NewContextModel(0)

	significant := m.Analyze("abcdabcd")
	assert.Equal(t, 5, m.Total())
	require.Len(t, significant, 4)
	assert.InDelta(t, 0.4, significant["abcd"], 1e-9)
	assert.InDelta(t, 0.2, significant["dabc"], 1e-9)
}

func TestContextModel_ShortText(t *testing.T) {
	m := NewContextModel(DefaultContextThreshold)
	assert.Empty(t, m.Analyze("abc"))
	assert.Zero(t, m.Total())
	assert.Nil(t, m.TopContexts(5))
}

func TestContextModel_Accumulates(t *testing.T) {
	m := NewContextModel(DefaultContextThreshold)
	m.Analyze("abcd")
	m.Analyze("abcd")
	assert.Equal(t, 2, m.Total())
	assert.Equal(t, []ContextCount{{Context: "abcd", Count: 2}}, m.TopContexts(3))
}

func TestContextModel_Threshold(t *testing.T) {
	m := NewContextModel(0.3)
	significant := m.Analyze("abcdabcd")
	assert.Equal(t, map[string]float64{"abcd": 0.4}, significant)
}

func TestContextModel_TopContexts(t *testing.T) {
	m := NewContextModel(0)
	m.Analyze("abcdabcd")

	top := m.TopContexts(2)
	assert.Equal(t, []ContextCount{
		{Context: "abcd", Count: 2},
		{Context: "bcda", Count: 1},
	}, top)

	assert.Len(t, m.TopContexts(100), 4)
	assert.Nil(t, m.TopContexts(0))
}

func TestPredictiveEncode(t *testing.T) {
	contexts := []ContextCount{
		{Context: "abcd", Count: 2},
		{Context: "bcda", Count: 1},
	}

	encoded, table := PredictiveEncode("abcdabcd", contexts)
	assert.Equal(t, strings.Repeat(string(ContextCodeBase), 2), encoded)
	assert.Equal(t, PatternTable{
		{From: "abcd", To: ContextCodeBase},
		{From: "bcda", To: ContextCodeBase + 1},
	}, table)
	assert.Equal(t, "abcdabcd", table.Desubstitute(encoded))
}

func TestPredictiveEncode_SkipsReservedContexts(t *testing.T) {
	contexts := []ContextCount{
		{Context: "a†bc", Count: 3},
		{Context: "wxyz", Count: 1},
	}

	encoded, table := PredictiveEncode("a†bc wxyz", contexts)
	assert.Equal(t, "a†bc "+string(ContextCodeBase+1), encoded)
	assert.Equal(t, PatternTable{{From: "wxyz", To: ContextCodeBase + 1}}, table)
}

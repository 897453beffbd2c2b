package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected ContentType
	}{
		{
			name:     "code",
			content:  "func main() { x = [1]; }",
			expected: ContentTypeCode,
		},
		{
			name:     "markdown document",
			content:  "# Title\n\n- item\n- item\n",
			expected: ContentTypeDocument,
		},
		{
			name:     "code inside document",
			content:  "# Code\n\nf(x) = {y};",
			expected: ContentTypeMixed,
		},
		{
			name:     "prose",
			content:  "hello world, this is just a sentence",
			expected: ContentTypeText,
		},
		{
			name:     "empty",
			content:  "",
			expected: ContentTypeText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectContentType(tt.content))
		})
	}
}

func TestIndicatorScore(t *testing.T) {
	assert.InDelta(t, 0.5, indicatorScore("{a}b", codeIndicators, 4), 1e-9)
	assert.Zero(t, indicatorScore("plain", codeIndicators, 5))
}

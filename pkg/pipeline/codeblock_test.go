package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFenced(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		code      string
		narrative string
	}{
		{
			name:      "well formed block with language tag",
			raw:       "Revenue grew steadily.\n```python\nimport matplotlib\nprint('hi')\n```\ntrailing",
			code:      "import matplotlib\nprint('hi')",
			narrative: "Revenue grew steadily.",
		},
		{
			name:      "fence without language tag",
			raw:       "Answer first.\n```\nx = 1\n```",
			code:      "x = 1",
			narrative: "Answer first.",
		},
		{
			name:      "no fences at all",
			raw:       "  Just a narrative answer with no code.  ",
			code:      "",
			narrative: "Just a narrative answer with no code.",
		},
		{
			name:      "missing closing fence",
			raw:       "Answer.\n```python\nx = 1\n",
			code:      "",
			narrative: "Answer.\n```python\nx = 1",
		},
		{
			name:      "opening fence with no newline",
			raw:       "Answer. ```",
			code:      "",
			narrative: "Answer. ```",
		},
		{
			name:      "surrounding whitespace trimmed from fragment",
			raw:       "Done.\n```python\n\n  y = 2  \n\n```",
			code:      "y = 2",
			narrative: "Done.",
		},
		{
			name:      "empty input",
			raw:       "",
			code:      "",
			narrative: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, narrative := ParseFenced(tt.raw)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.narrative, narrative)
		})
	}
}

func TestParseFencedRoundTrip(t *testing.T) {
	fragment := "import matplotlib.pyplot as plt\nplt.plot([1, 2, 3])\nplt.savefig('chart.png')"
	raw := "The quarters trended upward.\n```python\n" + fragment + "\n```"

	code, narrative := ParseFenced(raw)
	assert.Equal(t, fragment, code)
	assert.Equal(t, "The quarters trended upward.", narrative)
}

package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryCommandHasSymbolAndDescription(t *testing.T) {
	for command, glyph := range CommandToSymbol {
		assert.NotEmpty(t, glyph, "command %q has empty glyph", command)
		assert.Contains(t, CommandDescriptions, command)
	}
	assert.Len(t, CommandDescriptions, len(CommandToSymbol))
}

func TestGlyphsAreDistinct(t *testing.T) {
	seen := make(map[string]string)
	for command, glyph := range CommandToSymbol {
		if prev, dup := seen[glyph]; dup {
			t.Errorf("glyph %q shared by %q and %q", glyph, command, prev)
		}
		seen[glyph] = command
	}
}

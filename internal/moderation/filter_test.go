package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCheck(t *testing.T) {
	f := NewFilter()

	t.Run("clean text passes", func(t *testing.T) {
		assert.True(t, f.IsClean("I saw someone cute in the library today"))
		assert.Empty(t, f.Check("totally wholesome confession"))
	})

	t.Run("blocked word is found", func(t *testing.T) {
		found := f.Check("this class is such bullshit honestly")
		assert.Equal(t, []string{"bullshit"}, found)
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		assert.False(t, f.IsClean("WHAT THE FUCK"))
	})

	t.Run("substrings do not match", func(t *testing.T) {
		// "class" contains "ass", "scrapbook" contains "crap"
		assert.True(t, f.IsClean("my class scrapbook assignment"))
	})

	t.Run("duplicates reported once", func(t *testing.T) {
		found := f.Check("shit shit shit")
		assert.Equal(t, []string{"shit"}, found)
	})

	t.Run("digit substitutions match", func(t *testing.T) {
		found := f.Check("this sh1t is b0llocks")
		assert.Equal(t, []string{"shit", "bollocks"}, found)
	})

	t.Run("innocent digit words stay clean", func(t *testing.T) {
		assert.True(t, f.IsClean("midterm 2 at 10am in b4"))
	})
}

func TestFilterMask(t *testing.T) {
	f := NewFilter()

	assert.Equal(t, "what the ****", f.Mask("what the fuck"))
	assert.Equal(t, "****! that exam", f.Mask("shit! that exam"))
	assert.Equal(t, "clean text stays intact", f.Mask("clean text stays intact"))

	// Case is irrelevant to matching but length is preserved
	assert.Equal(t, "****", f.Mask("FUCK"))

	// Digit-substituted spellings are masked too
	assert.Equal(t, "that ****", f.Mask("that sh1t"))
}

func TestFilterAddWords(t *testing.T) {
	f := NewFilterWithWords([]string{"banned"})

	assert.False(t, f.IsClean("this is banned"))
	assert.True(t, f.IsClean("this is fine"))

	f.AddWords("fine")
	assert.False(t, f.IsClean("this is fine"))
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withEmptyRegistry runs fn against a cleared registry and restores the
// previous contents afterwards.
func withEmptyRegistry(t *testing.T, fn func()) {
	t.Helper()
	saved := All()
	Clear()
	t.Cleanup(func() {
		Clear()
		for _, def := range saved {
			Register(def)
		}
	})
	fn()
}

func TestRegistry(t *testing.T) {
	withEmptyRegistry(t, func() {
		Register(FilterDefinition{Key: "b", Label: "Bravo"})
		Register(FilterDefinition{Key: "a", Label: "Alpha"})

		assert.Equal(t, 2, FilterCount())
		assert.Equal(t, []string{"a", "b"}, Keys())

		def, ok := Lookup("b")
		require.True(t, ok)
		assert.Equal(t, "Bravo", def.Label)

		_, ok = Lookup("missing")
		assert.False(t, ok)
	})
}

func TestRegister_PanicsOnDuplicate(t *testing.T) {
	withEmptyRegistry(t, func() {
		Register(FilterDefinition{Key: "gdp"})
		assert.Panics(t, func() {
			Register(FilterDefinition{Key: "gdp"})
		})
	})
}

func TestRegister_PanicsOnEmptyKey(t *testing.T) {
	withEmptyRegistry(t, func() {
		assert.Panics(t, func() {
			Register(FilterDefinition{})
		})
	})
}

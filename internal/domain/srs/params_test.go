package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParams(t *testing.T) {
	t.Parallel()

	defaults := NewDefaultParams()
	assert.Equal(t, 1.3, defaults.MinEaseFactor)
	assert.Equal(t, 1, defaults.FirstInterval)
	assert.Equal(t, 6, defaults.SecondInterval)

	custom := NewParams(ParamsConfig{MinEaseFactor: 1.5, SecondInterval: 4})
	assert.Equal(t, 1.5, custom.MinEaseFactor)
	assert.Equal(t, 1, custom.FirstInterval, "zero value keeps default")
	assert.Equal(t, 4, custom.SecondInterval)
}

package runid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIsUniqueAndOrdered(t *testing.T) {
	a := New()
	first := a.Next()
	second := a.Next()

	assert.NotEqual(t, first, second)
	assert.Contains(t, first, "run-1-")
	assert.Contains(t, second, "run-2-")
}

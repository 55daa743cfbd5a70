package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	threshold := 0.5
	p := Ptr(threshold)
	threshold = 0.9

	assert.InDelta(t, 0.5, *p, 1e-12)
	assert.Equal(t, "glue", *Ptr("glue"))
}

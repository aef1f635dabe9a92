// internal/models/common_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRegNo(t *testing.T) {
	assert.Equal(t, "NS-TRP-00042", FormatRegNo(42))
	assert.Equal(t, "NS-TRP-00000", FormatRegNo(0))
	assert.Equal(t, "NS-TRP-99998", FormatRegNo(99998))
}

func TestAssigned(t *testing.T) {
	reg := &Registration{}
	assert.False(t, reg.Assigned())

	empty := ""
	reg.FullName = &empty
	assert.False(t, reg.Assigned())

	name := "Morag Sutherland"
	reg.FullName = &name
	assert.True(t, reg.Assigned())
}

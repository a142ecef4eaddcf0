package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABC234", "ABC234"},
		{"abc234", "ABC234"},
		{" abc-234 ", "ABC234"},
		{"AB C2\t34", "ABC234"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCode(tt.in), "input %q", tt.in)
	}
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("ABC234"))
	assert.True(t, ValidCode("ABCDEFGH"))
	assert.False(t, ValidCode("ABC23"), "too short")
	assert.False(t, ValidCode("ABCDEFGHJ"), "too long")
	assert.False(t, ValidCode("ABC0O1"), "ambiguous characters are never issued")
	assert.False(t, ValidCode("abc234"), "codes are validated after normalization")
}

func TestCodeAlphabet(t *testing.T) {
	assert.Len(t, CodeAlphabet, 32)
	assert.NotContains(t, CodeAlphabet, "0")
	assert.NotContains(t, CodeAlphabet, "O")
	assert.NotContains(t, CodeAlphabet, "1")
	assert.NotContains(t, CodeAlphabet, "I")
}

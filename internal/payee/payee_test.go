package payee

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"STARBUCKS #1234", "starbucks 1234"},
		{"Starbucks 1234", "starbucks 1234"},
		{"  AMAZON.COM*MK12Z  ", "amazon com mk12z"},
		{"Café Río", "cafe rio"},
		{"TRADER JOE'S #552", "trader joe s 552"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("STARBUCKS #1234", "Starbucks 1234"))
	assert.True(t, Equal("Café Río", "CAFE RIO"))
	assert.False(t, Equal("STARBUCKS #1234", "STARBUCKS #9999"))
}

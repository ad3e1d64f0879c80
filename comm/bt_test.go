package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain", []byte("... --- ..."), "... --- ..."},
		{"trailing newline", []byte(".-.. / -.-\n"), ".-.. / -.-"},
		{"crlf and spaces", []byte("  -.-. \r\n"), "-.-."},
		{"whitespace only", []byte(" \n\t"), ""},
		{"empty", nil, ""},
		{"invalid utf8", []byte{'.', 0xc3, '-'}, ".�-"},
		{"utf8", []byte("привет"), "привет"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeMessage(tt.in))
		})
	}
}

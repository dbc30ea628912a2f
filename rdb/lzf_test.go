package rdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLzfDecompress(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		outLen int
		want   string
	}{
		{"literal", []byte{0x02, 'a', 'b', 'c'}, 3, "abc"},
		{"back reference", []byte{0x02, 'a', 'b', 'c', 0x80, 0x02}, 9, "abcabcabc"},
		{"long overlapping run", []byte{0x00, 'a', 0xE0, 0x0E, 0x00}, 24, strings.Repeat("a", 24)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := lzfDecompress(tt.in, tt.outLen)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestLzfDecompress_Corrupt(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		outLen int
	}{
		{"literal past input", []byte{0x05, 'a'}, 6},
		{"literal past output", []byte{0x02, 'a', 'b', 'c'}, 2},
		{"reference before start", []byte{0x20, 0x00}, 3},
		{"missing offset byte", []byte{0x00, 'a', 0x20}, 4},
		{"short output", []byte{0x00, 'a'}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lzfDecompress(tt.in, tt.outLen)
			assert.ErrorIs(t, err, errLZFCorrupt)
		})
	}
}

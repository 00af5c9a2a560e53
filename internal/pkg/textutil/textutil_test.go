package textutil_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/catalog-chat/internal/pkg/textutil"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"相同向量", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"同向不同长度", []float32{1, 1}, []float32{3, 3}, 1},
		{"正交向量", []float32{1, 0}, []float32{0, 1}, 0},
		{"相反向量", []float32{1, 1}, []float32{-1, -1}, -1},
		{"维度不一致", []float32{1}, []float32{1, 2}, 0},
		{"零向量", []float32{0, 0}, []float32{1, 1}, 0},
		{"空向量", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, textutil.Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestFingerprint(t *testing.T) {
	h := textutil.Fingerprint("products.csv", "1")
	assert.Len(t, h, 32)
	assert.Equal(t, h, textutil.Fingerprint("products.csv", "1"))
	assert.NotEqual(t, h, textutil.Fingerprint("products.csv", "2"))
	assert.NotEqual(t, textutil.Fingerprint("a:b", "c"), textutil.Fingerprint("a", "b:c"))
}

func TestClip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  string
	}{
		{"短于上限", "saree", 10, "saree"},
		{"恰好等于上限", "saree", 5, "saree"},
		{"超出上限", "saree", 3, "sar"},
		{"多字节字符", "£4.74 £21.84", 5, "£4.74"},
		{"上限为零", "saree", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textutil.Clip(tt.input, tt.n))
		})
	}

	long := strings.Repeat("₹", 600)
	assert.Equal(t, 512, utf8.RuneCountInString(textutil.Clip(long, 512)))
}

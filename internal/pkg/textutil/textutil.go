// Package textutil 提供文档块 ID、内容摘要与向量打分用到的小工具。
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
)

// Fingerprint 对各部分做 SHA-256，返回前 16 字节的十六进制串。
// 各部分以 0 字节分隔，("a:b", "c") 与 ("a", "b:c") 不会相同。
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Cosine 余弦相似度，维度不一致或任一向量为零时返回 0。
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i, x := range a {
		y := float64(b[i])
		dot += float64(x) * y
		na += float64(x) * float64(x)
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / math.Sqrt(na*nb))
}

// Clip 保留前 n 个字符（按 rune 计）。
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

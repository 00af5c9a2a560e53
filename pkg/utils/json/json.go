// Package json is the JSON codec for session turns, provider payloads and
// option dumps. It uses sonic configured for encoding/json compatibility;
// on platforms sonic does not accelerate, sonic itself delegates to
// encoding/json.
package json

import (
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// Marshal encodes v with sorted map keys and HTML escaping, byte for byte
// like encoding/json.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Decoder reads a stream of JSON values.
type Decoder interface {
	Decode(v any) error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) Decoder {
	return api.NewDecoder(r)
}

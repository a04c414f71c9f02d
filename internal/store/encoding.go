package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ppiankov/wordlist/internal/model"
)

// EncodeVector packs v as little-endian IEEE 754 float32 values, no length prefix
func EncodeVector(v model.Vector) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// DecodeVector unpacks a blob written by EncodeVector
func DecodeVector(b []byte) (model.Vector, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d (not multiple of 4)", len(b))
	}
	v := make(model.Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

package embcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Cached vectors are stored as: version byte, uint16 width, then little-endian float32s.
const (
	codecVersion = 1
	headerLen    = 3
)

var errBadEntry = errors.New("bad embedding cache entry")

func encodeVector(v []float32) []byte {
	buf := make([]byte, headerLen+len(v)*4)
	buf[0] = codecVersion
	binary.LittleEndian.PutUint16(buf[1:], uint16(len(v)))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[headerLen+i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < headerLen || data[0] != codecVersion {
		return nil, fmt.Errorf("%w: missing v%d header", errBadEntry, codecVersion)
	}
	n := int(binary.LittleEndian.Uint16(data[1:]))
	if n == 0 || len(data) != headerLen+n*4 {
		return nil, fmt.Errorf("%w: header says %d floats, payload is %d bytes", errBadEntry, n, len(data)-headerLen)
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[headerLen+i*4:]))
	}
	return vec, nil
}

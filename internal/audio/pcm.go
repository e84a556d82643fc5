// Package audio converts between the raw sample representations used at the
// bridge boundaries: little-endian float32 PCM on the wire and in bridge
// files, 16-bit linear PCM at the speech-engine boundary.
package audio

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrMisalignedFloat32 = errors.New("audio: payload is not a whole number of float32 samples")
	ErrMisalignedPCM16   = errors.New("audio: payload is not a whole number of int16 samples")
)

// EncodeFloat32 serializes samples as little-endian float32 bytes.
func EncodeFloat32(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}

// DecodeFloat32 deserializes little-endian float32 bytes.
func DecodeFloat32(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, ErrMisalignedFloat32
	}
	if len(data) == 0 {
		return nil, nil
	}
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples, nil
}

// Float32ToPCM16 converts float samples in [-1, 1] to LINEAR16 bytes,
// clamping out-of-range values.
func Float32ToPCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * math.MaxInt16)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

// PCM16ToFloat32 converts LINEAR16 bytes to float samples in [-1, 1].
func PCM16ToFloat32(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, ErrMisalignedPCM16
	}
	if len(data) == 0 {
		return nil, nil
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / float32(math.MaxInt16)
	}
	return samples, nil
}

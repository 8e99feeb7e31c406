// Package audio moves audio sample blocks between channel pipelines and UDP
// sockets. The wire format is raw signed 16-bit little-endian PCM mono, the
// format generic SDR-audio-over-UDP consumers expect. Delivery is best
// effort: datagrams may be lost or reordered and neither end compensates,
// which is acceptable for casual digital-mode decoding but not for hard
// real-time telemetry.
package audio

import "encoding/binary"

const bytesPerSample = 2

// EncodeS16LE converts float32 samples in [-1, 1] to S16_LE bytes, clamping
// out-of-range values. The result is appended to dst[:0].
func EncodeS16LE(dst []byte, samples []float32) []byte {
	out := dst[:0]
	for _, s := range samples {
		v := s * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(int16(v)))
	}
	return out
}

// DecodeS16LE converts S16_LE bytes back to float32 samples in [-1, 1],
// appended to dst[:0]. A trailing odd byte is ignored.
func DecodeS16LE(dst []float32, data []byte) []float32 {
	out := dst[:0]
	for i := 0; i+bytesPerSample <= len(data); i += bytesPerSample {
		v := int16(binary.LittleEndian.Uint16(data[i:]))
		out = append(out, float32(v)/32768)
	}
	return out
}

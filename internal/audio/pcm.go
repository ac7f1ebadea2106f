package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrOddFrameLength = errors.New("pcm frame has an odd number of bytes")

// Quantize clamps s to [-1,1] and scales it to a signed 16-bit sample.
// Negative samples scale by 32768 and non-negative by 32767 so that both
// ends of the range fit without overflow. Scaled values round to nearest,
// which keeps the Dequantize error under 1/32768.
func Quantize(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	if v < 0 {
		return int16(math.Round(v * 32768))
	}
	return int16(math.Round(v * 32767))
}

// Dequantize is the inverse of Quantize.
func Dequantize(q int16) float32 {
	if q < 0 {
		return float32(float64(q) / 32768)
	}
	return float32(float64(q) / 32767)
}

// PackPCM16 quantizes samples into little-endian 16-bit PCM.
func PackPCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(Quantize(s)))
	}
	return buf
}

// UnpackPCM16 reads little-endian 16-bit PCM.
func UnpackPCM16(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w (got %d bytes)", ErrOddFrameLength, len(data))
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out, nil
}

// EncodeFrame turns one captured block into a base64 audio frame.
func EncodeFrame(samples []float32) string {
	return base64.StdEncoding.EncodeToString(PackPCM16(samples))
}

// DecodeCaptureFrame reverses EncodeFrame.
func DecodeCaptureFrame(frame string) ([]float32, error) {
	pcm, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(pcm))
	for i, q := range pcm {
		out[i] = Dequantize(q)
	}
	return out, nil
}

// DecodePlaybackFrame decodes a received model audio frame into normalized
// samples, dividing by 32768.
func DecodePlaybackFrame(frame string) ([]float32, error) {
	pcm, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(pcm))
	for i, q := range pcm {
		out[i] = float32(q) / 32768
	}
	return out, nil
}

func decodeFrame(frame string) ([]int16, error) {
	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio frame: %w", err)
	}
	return UnpackPCM16(data)
}

// Float32FromLE decodes little-endian float32 samples. Trailing partial
// samples are ignored.
func Float32FromLE(data []byte, dst []float32) []float32 {
	n := len(data) / 4
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return dst
}

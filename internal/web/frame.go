package web

import (
	"encoding/binary"
	"math"

	"github.com/guidoenr/spherizer/internal/app"
)

// FloatsPerPoint is the number of float32 values per particle in a frame.
const FloatsPerPoint = 7

// EncodeFrame packs a frame as little-endian binary: a uint32 particle count, a
// float32 clock, then x, y, size, r, g, b, a for each particle.
func EncodeFrame(f app.FrameData) []byte {
	count := f.Count
	if n := len(f.Points) / FloatsPerPoint; count > n {
		count = n
	}
	if count < 0 {
		count = 0
	}
	buf := make([]byte, 8+count*FloatsPerPoint*4)
	binary.LittleEndian.PutUint32(buf[0:], uint32(count))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(f.Time)))
	off := 8
	for _, v := range f.Points[:count*FloatsPerPoint] {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return buf
}

// decodeFrame is the inverse of EncodeFrame. It reports false for a truncated buffer.
func decodeFrame(buf []byte) (app.FrameData, bool) {
	if len(buf) < 8 {
		return app.FrameData{}, false
	}
	count := int(binary.LittleEndian.Uint32(buf[0:]))
	if len(buf) != 8+count*FloatsPerPoint*4 {
		return app.FrameData{}, false
	}
	f := app.FrameData{
		Time:   float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
		Count:  count,
		Points: make([]float32, count*FloatsPerPoint),
	}
	for i := range f.Points {
		f.Points[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[8+i*4:]))
	}
	return f, true
}

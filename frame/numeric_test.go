package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumeric_LittleEndian(t *testing.T) {
	assert.Equal(t, []byte{0x34, 0x12}, AppendUint16(nil, 0x1234))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, AppendInt32(nil, -1))
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, AppendFloat32(nil, 1.0))

	b := make([]byte, 4)
	PutUint16(b, 513)
	assert.Equal(t, uint16(513), Uint16(b))

	PutInt32(b, math.MinInt32)
	assert.Equal(t, int32(math.MinInt32), Int32(b))

	PutFloat32(b, -0.25)
	assert.InDelta(t, float32(-0.25), Float32(b), 0)
}

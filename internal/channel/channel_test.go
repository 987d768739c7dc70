package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/esxtool/esxtool/internal/errors"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     []int
		band      string
		width     int
		primary   int
		secondary int
		count     int
	}{
		{"single 5 GHz", []int{36}, Band5, 20, 36, 0, 1},
		{"single 2.4 GHz", []int{11}, Band24, 20, 11, 0, 1},
		{"40 MHz 2.4 GHz", []int{1, 6}, Band24, 40, 1, 6, 2},
		{"80 MHz", []int{36, 40, 44, 48}, Band5, 80, 36, 40, 4},
		{"160 MHz", []int{100, 104, 108, 112, 116, 120, 124, 128}, Band5, 160, 100, 104, 8},
		{"threshold uses first channel only", []int{2, 3}, Band24, 40, 2, 3, 2},
		{"first channel exactly 36", []int{36, 32}, Band5, 40, 36, 32, 2},
		{"first channel 35", []int{35, 40}, Band24, 40, 35, 40, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Decode(tt.input)
			assert.True(t, d.Recognized())
			assert.Equal(t, tt.band, d.Band)
			assert.Equal(t, tt.width, d.Width)
			assert.Equal(t, tt.primary, d.Primary())
			assert.Equal(t, tt.secondary, d.Secondary())
			assert.Equal(t, tt.count, d.Count)
		})
	}
}

func TestDecodeFillsAllSlots(t *testing.T) {
	t.Parallel()

	input := []int{100, 104, 108, 112, 116, 120, 124, 128}
	d := Decode(input)
	for i, ch := range input {
		assert.Equal(t, ch, d.Channels[i])
	}
	assert.Equal(t, "128", d.Slot(7))
	assert.Equal(t, "160", d.WidthString())
}

func TestDecodeUnrecognizedWidth(t *testing.T) {
	t.Parallel()

	for _, input := range [][]int{{1, 6, 11}, {36, 40, 44, 48, 52}, make([]int, 9)} {
		d := Decode(input)
		assert.False(t, d.Recognized(), "%v", input)
		assert.Equal(t, 0, d.Width)
		assert.Equal(t, 0, d.Count)
		assert.Equal(t, [MaxSlots]int{}, d.Channels)
		assert.Empty(t, d.Slot(0))
		assert.Empty(t, d.WidthString())
	}
}

func TestDecodeEmpty(t *testing.T) {
	t.Parallel()

	d := Decode(nil)
	assert.Equal(t, Decoded{}, d)
	assert.Empty(t, d.Band)
}

func TestSlotOutOfRange(t *testing.T) {
	t.Parallel()

	d := Decode([]int{36, 40})
	assert.Equal(t, "36", d.Slot(0))
	assert.Empty(t, d.Slot(2))
	assert.Empty(t, d.Slot(-1))
	assert.Empty(t, d.Slot(MaxSlots))
}

func TestUnrecognizedWidthError(t *testing.T) {
	t.Parallel()

	err := UnrecognizedWidthError("m7", []int{1, 2, 3})
	assert.ErrorIs(t, err, errors.ErrUnrecognizedChannelWidth)
	assert.Contains(t, err.Error(), "m7")
}

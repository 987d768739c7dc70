// Package channel decodes bonded channel lists into band, width and channel slots.
package channel

import (
	"strconv"

	"github.com/esxtool/esxtool/internal/errors"
)

// Bands reported by Decode. Channel numbers below 36 are treated as 2.4 GHz
// and everything else as 5 GHz; 6 GHz numbering cannot be told apart.
const (
	Band24 = "2.4"
	Band5  = "5"

	// band5FirstChannel is the lowest 5 GHz channel number
	band5FirstChannel = 36
)

// MaxSlots is the number of channel slots in a Decoded record (160 MHz = 8 x 20 MHz).
const MaxSlots = 8

// widths maps the number of bonded 20 MHz channels to the total width in MHz.
var widths = map[int]int{
	1: 20,
	2: 40,
	4: 80,
	8: 160,
}

// Decoded is the canonical form of a bonded channel list.
type Decoded struct {
	Band     string        // "2.4", "5" or "" for an empty list
	Width    int           // MHz; 0 when the list length is not 1, 2, 4 or 8
	Channels [MaxSlots]int // slot N holds channels[N]; 0 means unset
	Count    int           // number of populated slots
}

// Recognized reports whether the list length mapped to a known width.
func (d Decoded) Recognized() bool {
	return d.Width != 0
}

// Primary returns the primary channel, or 0 when unset.
func (d Decoded) Primary() int {
	return d.Channels[0]
}

// Secondary returns the secondary channel, or 0 when unset.
func (d Decoded) Secondary() int {
	return d.Channels[1]
}

// Slot returns the channel in slot i rendered for a report cell, "" when unset.
func (d Decoded) Slot(i int) string {
	if i < 0 || i >= d.Count {
		return ""
	}
	return strconv.Itoa(d.Channels[i])
}

// WidthString renders the width for a report cell, "" when unrecognized.
func (d Decoded) WidthString() string {
	if d.Width == 0 {
		return ""
	}
	return strconv.Itoa(d.Width)
}

// Decode maps a raw ordered channel list to its band, width and slots.
// Unsupported lengths produce an unrecognized record with every slot unset;
// Decode never panics.
func Decode(channels []int) Decoded {
	var d Decoded
	if len(channels) == 0 {
		return d
	}

	d.Band = Band5
	if channels[0] < band5FirstChannel {
		d.Band = Band24
	}

	width, ok := widths[len(channels)]
	if !ok {
		return d
	}

	d.Width = width
	d.Count = copy(d.Channels[:], channels)
	return d
}

// UnrecognizedWidthError builds the non-fatal issue reported for a channel
// list whose length does not map to a width.
func UnrecognizedWidthError(measurementID string, channels []int) error {
	return errors.Newf("measurement %s has %d bonded channels, expected 1, 2, 4 or 8", measurementID, len(channels)).
		Component("channel").
		Category(errors.CategoryChannelWidth).
		Priority(errors.PriorityLow).
		RecordContext("accessPointMeasurements.json", measurementID).
		Context("channel_count", len(channels)).
		Build()
}

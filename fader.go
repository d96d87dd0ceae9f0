// Package insertloop implements the external-insert routing core of an
// audio-plugin host's signal chain: an insert router that diverts a block's
// audio or MIDI to an external device loop and restores it on the next
// block, and an aux-send level control whose mute protocol stays visible to
// automation recording.
package insertloop

import (
	"fmt"
	"math"
)

// Mute boundaries in decibels. The threshold is where a send counts as
// muted; the floor is where mute parks the gain. They are distinct on
// purpose: unifying them would move the observable Muted() boundary.
const (
	MuteThresholdDb = -90.0
	MuteFloorDb     = -100.0
)

// Fader curve anchors. The curve is piecewise linear in decibels with unity
// (0 dB) pinned exactly at position 0.8, the mute floor near position 0 and
// +10 dB of headroom at position 1.
const (
	unityPosition = 0.8
	maxFaderDb    = 10.0

	dbPerPositionBelow = -MuteFloorDb / unityPosition // 125 dB per unit position
	dbPerPositionAbove = maxFaderDb / (1 - unityPosition)
)

// PositionForDb maps decibels to a fader position in [0, 1]. Monotonic, and
// the inverse of DbForPosition on the shared domain.
func PositionForDb(db float64) float64 {
	var pos float64
	if db >= 0 {
		pos = unityPosition + db/dbPerPositionAbove
	} else {
		pos = unityPosition + db/dbPerPositionBelow
	}
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}

// DbForPosition maps a fader position back to decibels.
func DbForPosition(pos float64) float64 {
	if pos >= unityPosition {
		return (pos - unityPosition) * dbPerPositionAbove
	}
	return (pos - unityPosition) * dbPerPositionBelow
}

// GainForDb converts decibels to a linear gain factor. At or below the mute
// floor the gain is exactly zero.
func GainForDb(db float64) float64 {
	if db <= MuteFloorDb {
		return 0
	}
	return math.Pow(10, db/20)
}

// DbString formats a decibel value for display.
func DbString(db float64) string {
	if db <= MuteThresholdDb {
		return "-∞ dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

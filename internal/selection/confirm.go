package selection

import (
	"math"

	"github.com/amaslov/equitybot/pkg/models"
)

const (
	confirmVolumeRatio   = 1.5
	confirmChangePercent = 2.0
	confirmHighProximity = 0.95
	confirmationsNeeded  = 2
	confirmedBoost       = 1.2
)

// isConfirmed runs the confirmation screen: at least two of three
// corroborating conditions must hold. A missing 52-week high defaults to
// the current price, which makes the proximity condition trivially true;
// that asymmetry is intentional and documented rather than suppressed.
func isConfirmed(snap *models.MarketSnapshot) bool {
	confirmations := 0

	// Volume surge vs trailing average
	if snap.AvgVolume > 0 && float64(snap.Volume) > confirmVolumeRatio*snap.AvgVolume {
		confirmations++
	}

	// Meaningful daily move in either direction
	if math.Abs(snap.ChangePercent) > confirmChangePercent {
		confirmations++
	}

	// Price within 5% of the 52-week high
	high := snap.High52W
	if high <= 0 {
		high = snap.Price
	}
	if high > 0 && snap.Price >= confirmHighProximity*high {
		confirmations++
	}

	return confirmations >= confirmationsNeeded
}

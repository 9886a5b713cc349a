package proximity

import (
	"math"
	"time"
)

// Zone thresholds in dBm. A sample at or above a threshold belongs to that
// zone.
const (
	RSSIVeryClose int8 = -50
	RSSIClose     int8 = -60
	RSSIMedium    int8 = -70
	RSSIFar       int8 = -80
)

// Path loss model used by EstimateDistance.
const (
	// TxPowerDBM is the RSSI measured at one meter.
	TxPowerDBM = -40.0

	// PathLossExponent models an indoor environment with people around.
	PathLossExponent = 2.5
)

// Zone is a coarse distance bucket.
type Zone uint8

const (
	ZoneUnknown Zone = iota
	ZoneVeryClose
	ZoneClose
	ZoneMedium
	ZoneFar
	ZoneEdge
)

// String returns the zone name.
func (z Zone) String() string {
	switch z {
	case ZoneUnknown:
		return "UNKNOWN"
	case ZoneVeryClose:
		return "VERY_CLOSE"
	case ZoneClose:
		return "CLOSE"
	case ZoneMedium:
		return "MEDIUM"
	case ZoneFar:
		return "FAR"
	case ZoneEdge:
		return "EDGE"
	default:
		return "INVALID"
	}
}

// ZoneFor returns the zone of a single RSSI value.
func ZoneFor(rssi int8) Zone {
	switch {
	case rssi >= RSSIVeryClose:
		return ZoneVeryClose
	case rssi >= RSSIClose:
		return ZoneClose
	case rssi >= RSSIMedium:
		return ZoneMedium
	case rssi >= RSSIFar:
		return ZoneFar
	default:
		return ZoneEdge
	}
}

// Feedback is how a zone is rendered on the badge.
type Feedback struct {
	LEDCount    int
	BlinkPeriod time.Duration
}

var zoneFeedback = [...]Feedback{
	ZoneUnknown:   {0, 0},
	ZoneVeryClose: {10, 50 * time.Millisecond},
	ZoneClose:     {7, 100 * time.Millisecond},
	ZoneMedium:    {5, 200 * time.Millisecond},
	ZoneFar:       {3, 400 * time.Millisecond},
	ZoneEdge:      {1, 800 * time.Millisecond},
}

// FeedbackFor returns the display parameters of z.
func FeedbackFor(z Zone) Feedback {
	if int(z) < len(zoneFeedback) {
		return zoneFeedback[z]
	}
	return Feedback{}
}

// EstimateDistance converts an RSSI to meters with the log-distance path loss
// model. The estimate is only indicative.
func EstimateDistance(rssi int8) float64 {
	return math.Pow(10, (TxPowerDBM-float64(rssi))/(10*PathLossExponent))
}

// RSSIAt is the inverse of EstimateDistance, clamped to the int8 range. It
// is used by simulations to place badges.
func RSSIAt(meters float64) int8 {
	if meters <= 0 {
		return math.MaxInt8
	}
	rssi := TxPowerDBM - 10*PathLossExponent*math.Log10(meters)
	switch {
	case rssi >= math.MaxInt8:
		return math.MaxInt8
	case rssi <= math.MinInt8:
		return math.MinInt8
	}
	return int8(math.Round(rssi))
}

// Package proximity maps received signal strength to coarse distance zones.
//
// A Tracker smooths RSSI samples with a short moving average and reports the
// zone of the average. Without a sample for Timeout the zone falls back to
// ZoneUnknown. Each zone carries feedback parameters (lit LED count and blink
// period) for a badge's display.
package proximity

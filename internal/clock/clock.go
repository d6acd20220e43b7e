package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// SleepFunc blocks for the supplied duration. Override in tests to skip real waits.
var SleepFunc = time.Sleep

// Now returns the current UTC time.
func Now() time.Time { return NowFunc().UTC() }

// Sleep blocks the calling goroutine for d; non-positive durations return immediately.
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	SleepFunc(d)
}

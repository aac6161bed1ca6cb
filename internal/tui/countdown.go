package tui

import "time"

// countdownState tracks the current state of the countdown.
type countdownState int

const (
	countdownStopped countdownState = iota
	countdownRunning
	countdownPaused
)

// countdownModel manages the countdown logic separate from display. It is
// wall-clock based: remaining time is derived from the phase deadline, so a
// missed tick never drifts the clock.
type countdownModel struct {
	state      countdownState
	phaseStart time.Time
	phaseEnd   time.Time
	remaining  time.Duration
	pausedAt   time.Time
}

func newCountdownModel() countdownModel {
	return countdownModel{state: countdownStopped}
}

func (c *countdownModel) start(d time.Duration) {
	c.state = countdownRunning
	c.phaseStart = time.Now()
	c.phaseEnd = c.phaseStart.Add(d)
	c.remaining = d
}

func (c *countdownModel) stop() {
	c.state = countdownStopped
	c.remaining = 0
}

func (c *countdownModel) pause() {
	if c.state != countdownRunning {
		return
	}
	c.state = countdownPaused
	c.pausedAt = time.Now()
}

func (c *countdownModel) resume() {
	if c.state != countdownPaused {
		return
	}
	gap := time.Since(c.pausedAt)
	c.phaseEnd = c.phaseEnd.Add(gap)
	c.state = countdownRunning
}

func (c *countdownModel) toggle() {
	switch c.state {
	case countdownRunning:
		c.pause()
	case countdownPaused:
		c.resume()
	}
}

// tick refreshes remaining time and reports whether the phase has elapsed.
func (c *countdownModel) tick() bool {
	if c.state != countdownRunning {
		return false
	}
	c.remaining = time.Until(c.phaseEnd)
	if c.remaining <= 0 {
		c.remaining = 0
		return true
	}
	return false
}

func (c countdownModel) running() bool {
	return c.state != countdownStopped
}

func (c countdownModel) paused() bool {
	return c.state == countdownPaused
}

func (c countdownModel) currentRemaining() time.Duration {
	if c.state == countdownStopped {
		return 0
	}
	if c.state == countdownPaused {
		return c.phaseEnd.Sub(c.pausedAt)
	}
	return time.Until(c.phaseEnd)
}

// elapsedMinutes reports whole minutes spent in the current phase.
func (c countdownModel) elapsedMinutes() int {
	if c.state == countdownStopped {
		return 0
	}
	return int(time.Since(c.phaseStart).Minutes())
}

package game

import (
	"math"
	"time"

	"dutchAuction/clock"
)

// OpponentDelay returns how long after the clock starts the simulated
// opponent bids: the point where the descending price reaches oppBid.
// ok is false when the opponent never bids (flat clock, bid above the start).
func OpponentDelay(start, end, oppBid float64, duration time.Duration) (delay time.Duration, ok bool) {
	if start == end {
		return 0, false
	}
	prop := (start - oppBid) / (start - end)
	if math.IsNaN(prop) || math.IsInf(prop, 0) || prop < 0 {
		return 0, false
	}

	ms := math.Trunc(float64(duration.Milliseconds()) * prop)
	delay = time.Duration(ms) * time.Millisecond
	if delay > duration {
		delay = duration
	}
	return delay, true
}

// PriceStep returns the clock step at which price was reached.
func PriceStep(start, end, price float64, steps int) int {
	if start == end {
		return 0
	}
	return int(math.Round(float64(steps) * (start - price) / (start - end)))
}

// Opponent holds the simulated bidder's pending bid for the active trial.
// It is not safe for concurrent use; the engine guards it.
type Opponent struct {
	Name string

	timer clock.Timer
	token uint64
	delay time.Duration
	price float64
	armed bool
}

// Arm schedules the opponent's bid for t. fire runs on the clock's goroutine
// and must check Live(token) under the engine lock before submitting.
// Arm reports false when the opponent will not bid on this trial.
func (o *Opponent) Arm(c clock.Clock, t *Trial, duration time.Duration, fire func(token uint64, bid Bid)) bool {
	o.Cancel()

	delay, ok := OpponentDelay(t.StartPrice, t.EndPrice, t.OppBid, duration)
	if !ok {
		return false
	}

	token := o.token
	bid := Bid{Name: o.Name, Price: t.OppBid}
	o.delay = delay
	o.price = t.OppBid
	o.armed = true
	o.timer = c.AfterFunc(delay, func() { fire(token, bid) })
	return true
}

// Cancel stops the pending bid. Safe to call repeatedly.
func (o *Opponent) Cancel() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.token++
	o.armed = false
}

// Live reports whether a callback armed with token may still bid.
func (o *Opponent) Live(token uint64) bool {
	return o.armed && token == o.token
}

// Scheduled returns the pending bid delay and price, if armed.
func (o *Opponent) Scheduled() (time.Duration, float64, bool) {
	return o.delay, o.price, o.armed
}

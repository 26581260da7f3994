package game

import (
	"dutchAuction/state"
)

type TrialStatus string

const (
	TrialPending TrialStatus = "pending"
	TrialReady   TrialStatus = "ready"
	TrialRunning TrialStatus = "running"
	TrialWon     TrialStatus = "won"
)

type SessionStatus string

const (
	SessionIdle     SessionStatus = "none"
	SessionStarting SessionStatus = "starting"
	SessionRunning  SessionStatus = "running"
	SessionPaused   SessionStatus = "paused"
	SessionBreak    SessionStatus = "break"
	SessionComplete SessionStatus = "complete"
)

// Trial is one descending-price auction. The generated fields never change;
// the resolution fields are written once when Status becomes won.
type Trial struct {
	BlockNo    int     `json:"blockNo"`
	TrialNo    int     `json:"trialNo"`
	Prop       float64 `json:"prop"`
	Qty        int     `json:"qty"`
	StartPrice float64 `json:"startPrice"`
	EndPrice   float64 `json:"endPrice"`
	OppBid     float64 `json:"oppBid"`

	Status TrialStatus `json:"status"`
	Step   int         `json:"step"`
	Price  float64     `json:"price"`
	Winner string      `json:"winner"`
}

// Resolved reports whether the trial has a winner.
func (t *Trial) Resolved() bool { return t.Status == TrialWon }

// Bid is an inbound bid, from a human or from the simulated opponent.
type Bid struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Session is a read-only snapshot of the engine, safe to serialise.
type Session struct {
	RunID   string                       `json:"runId"`
	Status  SessionStatus                `json:"status"`
	TrialNo int                          `json:"trialNo"`
	Trial   *Trial                       `json:"trial"`
	Users   map[string]state.Participant `json:"users"`
}

// Settings is the per-session display configuration sent to each client on connect.
type Settings struct {
	Money             float64 `json:"money"`
	Decimals          int     `json:"nDPs"`
	MaxGoods          int     `json:"maxGoods"`
	PriceSteps        int     `json:"nPriceSteps"`
	PriceStepDuration int64   `json:"priceStepDuration"` // milliseconds
	Trials            int     `json:"nTrials"`
	Blocks            int     `json:"nBlocks"`
	FogOfWarehouse    bool    `json:"fogOfWarehouse"`
}

func copyTrials(trials []*Trial) []Trial {
	out := make([]Trial, len(trials))
	for i, t := range trials {
		out[i] = *t
	}
	return out
}

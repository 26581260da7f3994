package game

import (
	"fmt"
	"math"
	"math/rand"

	"dutchAuction/config"
)

// Distributions maps random draws onto trial parameters.
type Distributions struct {
	// Quantity turns a uniform proportion in [0,1) into a goods quantity.
	Quantity func(prop float64) int
	// StartPrice is the opening price of the descending clock.
	StartPrice func(qty int, rng *rand.Rand) float64
	// EndPrice is the price the clock reaches at its final step.
	EndPrice func(qty int) float64
	// OppBid is the simulated opponent's bid, between end and start price.
	OppBid func(qty int, startPrice, endPrice float64, rng *rand.Rand) float64
}

// DefaultDistributions builds the standard experiment policy from config:
// qty = base + spread*p, start = qty*U[min,max), end = 0, opp = end + (start-end)*U.
func DefaultDistributions(tc config.TrialsConfig) Distributions {
	return Distributions{
		Quantity: func(prop float64) int {
			return int(tc.QtySpread*prop + tc.QtyBase)
		},
		StartPrice: func(qty int, rng *rand.Rand) float64 {
			mult := tc.PriceMultMin + rng.Float64()*(tc.PriceMultMax-tc.PriceMultMin)
			return float64(qty) * mult
		},
		EndPrice: func(qty int) float64 {
			return 0
		},
		OppBid: func(qty int, startPrice, endPrice float64, rng *rand.Rand) float64 {
			return endPrice + (startPrice-endPrice)*rng.Float64()
		},
	}
}

// GeneratorConfig describes the trial sequence.
type GeneratorConfig struct {
	Blocks   int
	PerBlock int
	QtyMax   int
	Dist     Distributions
}

// Generate produces the full ordered trial sequence. Any out-of-range value
// from a distribution is a configuration error.
func Generate(gc GeneratorConfig, rng *rand.Rand) ([]*Trial, error) {
	if gc.Blocks < 1 || gc.PerBlock < 1 {
		return nil, fmt.Errorf("need at least one block and one trial, got %d x %d", gc.Blocks, gc.PerBlock)
	}
	if gc.QtyMax < 1 {
		return nil, fmt.Errorf("qty max must be >= 1, got %d", gc.QtyMax)
	}

	total := gc.Blocks * gc.PerBlock
	trials := make([]*Trial, 0, total)

	for i := 0; i < total; i++ {
		qty := gc.Dist.Quantity(rng.Float64())
		if qty < 1 || qty > gc.QtyMax {
			return nil, fmt.Errorf("trial %d: quantity %d outside [1, %d]", i, qty, gc.QtyMax)
		}

		start := gc.Dist.StartPrice(qty, rng)
		if !(start > 0) || math.IsInf(start, 0) {
			return nil, fmt.Errorf("trial %d: start price %v must be > 0", i, start)
		}

		end := gc.Dist.EndPrice(qty)
		if !(end >= 0 && end <= start) {
			return nil, fmt.Errorf("trial %d: end price %v outside [0, %v]", i, end, start)
		}

		opp := gc.Dist.OppBid(qty, start, end, rng)
		if !(opp >= end && opp <= start) {
			return nil, fmt.Errorf("trial %d: opponent bid %v outside [%v, %v]", i, opp, end, start)
		}

		trials = append(trials, &Trial{
			BlockNo:    i / gc.PerBlock,
			TrialNo:    i % gc.PerBlock,
			Prop:       float64(qty) / float64(gc.QtyMax),
			Qty:        qty,
			StartPrice: start,
			EndPrice:   end,
			OppBid:     opp,
			Status:     TrialPending,
		})
	}

	return trials, nil
}

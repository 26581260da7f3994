package game

import (
	"math/rand"
	"testing"

	"dutchAuction/config"

	"github.com/peterldowns/testy/check"
	"pgregory.net/rapid"
)

func defaultTrialsConfig() config.TrialsConfig {
	return config.TrialsConfig{
		Blocks:       config.DefaultBlocks,
		PerBlock:     config.DefaultTrials,
		QtyMax:       config.DefaultQtyMax,
		QtyBase:      config.DefaultQtyBase,
		QtySpread:    config.DefaultQtySpread,
		PriceMultMin: config.DefaultPriceMultMin,
		PriceMultMax: config.DefaultPriceMultMax,
	}
}

func defaultGenerator(blocks, perBlock int) GeneratorConfig {
	tc := defaultTrialsConfig()
	return GeneratorConfig{
		Blocks:   blocks,
		PerBlock: perBlock,
		QtyMax:   tc.QtyMax,
		Dist:     DefaultDistributions(tc),
	}
}

func TestGenerate_Layout(t *testing.T) {
	trials, err := Generate(defaultGenerator(3, 4), NewSeededRNG("layout"))
	check.NoError(t, err)
	check.Equal(t, 12, len(trials))

	for i, tr := range trials {
		check.Equal(t, i/4, tr.BlockNo)
		check.Equal(t, i%4, tr.TrialNo)
		check.Equal(t, TrialPending, tr.Status)
		check.Equal(t, "", tr.Winner)
		check.True(t, tr.Qty >= 100 && tr.Qty < 600)
		check.Equal(t, float64(tr.Qty)/600, tr.Prop)
		check.True(t, tr.StartPrice >= 0.5*float64(tr.Qty) && tr.StartPrice < 1.5*float64(tr.Qty))
		check.Equal(t, 0.0, tr.EndPrice)
	}
}

func TestGenerate_DeterministicForSeed(t *testing.T) {
	a, err := Generate(defaultGenerator(2, 5), NewSeededRNG("seed-1"))
	check.NoError(t, err)
	b, err := Generate(defaultGenerator(2, 5), NewSeededRNG("seed-1"))
	check.NoError(t, err)
	c, err := Generate(defaultGenerator(2, 5), NewSeededRNG("seed-2"))
	check.NoError(t, err)

	check.Equal(t, copyTrials(a), copyTrials(b))
	check.NotEqual(t, copyTrials(a), copyTrials(c))
}

func TestGenerate_RejectsBadDistributions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Distributions)
	}{
		{"quantity above max", func(d *Distributions) { d.Quantity = func(float64) int { return 601 } }},
		{"zero quantity", func(d *Distributions) { d.Quantity = func(float64) int { return 0 } }},
		{"non-positive start", func(d *Distributions) {
			d.StartPrice = func(int, *rand.Rand) float64 { return 0 }
		}},
		{"end above start", func(d *Distributions) { d.EndPrice = func(qty int) float64 { return 1e9 } }},
		{"opponent above start", func(d *Distributions) {
			d.OppBid = func(_ int, start, _ float64, _ *rand.Rand) float64 { return start + 1 }
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gc := defaultGenerator(1, 2)
			tt.mutate(&gc.Dist)
			_, err := Generate(gc, NewSeededRNG("bad"))
			check.Error(t, err)
		})
	}

	_, err := Generate(defaultGenerator(0, 5), NewSeededRNG("empty"))
	check.Error(t, err)
}

func TestProperty_OpponentBidWithinPriceRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.String().Draw(t, "seed")
		endFrac := rapid.Float64Range(0, 0.9).Draw(t, "endFrac")

		gc := defaultGenerator(2, 5)
		gc.Dist.EndPrice = func(qty int) float64 { return float64(qty) * 0.5 * endFrac }

		trials, err := Generate(gc, NewSeededRNG(seed))
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		for _, tr := range trials {
			if !(tr.EndPrice >= 0 && tr.EndPrice <= tr.StartPrice) {
				t.Fatalf("end %v outside [0, %v]", tr.EndPrice, tr.StartPrice)
			}
			if tr.OppBid < tr.EndPrice || tr.OppBid > tr.StartPrice {
				t.Fatalf("opponent bid %v outside [%v, %v]", tr.OppBid, tr.EndPrice, tr.StartPrice)
			}
		}
	})
}

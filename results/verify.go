package results

import (
	"fmt"

	"dutchAuction/game"
)

// VerifyGenerated checks that a recorded trial table carries exactly the
// generated fields of a regenerated one. Resolution fields are ignored.
func VerifyGenerated(recorded []game.Trial, generated []*game.Trial) error {
	if len(recorded) != len(generated) {
		return fmt.Errorf("recorded %d trials, seed generates %d", len(recorded), len(generated))
	}
	for i, r := range recorded {
		g := generated[i]
		if r.BlockNo != g.BlockNo || r.TrialNo != g.TrialNo ||
			r.Qty != g.Qty || r.StartPrice != g.StartPrice ||
			r.EndPrice != g.EndPrice || r.OppBid != g.OppBid {
			return fmt.Errorf("trial %d.%d does not match seed", r.BlockNo, r.TrialNo)
		}
	}
	return nil
}

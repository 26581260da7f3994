package results

import (
	"testing"

	"dutchAuction/game"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestSummarize(t *testing.T) {
	trials := []game.Trial{
		{Qty: 300, Status: game.TrialWon, Winner: "Gladys", Price: 150.1},
		{Qty: 200, Status: game.TrialWon, Winner: "Fred", Price: 0.2},
		{Qty: 100, Status: game.TrialWon, Winner: "Gladys", Price: 0.2},
		{Qty: 400, Status: game.TrialPending},
		{Qty: 500, Status: game.TrialReady},
	}

	winners, pending := Summarize(trials)
	check.Equal(t, 2, pending)
	assert.Equal(t, 2, len(winners))

	check.Equal(t, "Gladys", winners[0].Name)
	check.Equal(t, 2, winners[0].Wins)
	check.Equal(t, 400, winners[0].Goods)
	check.Equal(t, "150.3", winners[0].Spent.String())

	check.Equal(t, "Fred", winners[1].Name)
	check.Equal(t, "0.2", winners[1].Spent.String())
}

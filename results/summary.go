package results

import (
	"sort"

	"dutchAuction/game"

	"github.com/shopspring/decimal"
)

// WinnerSummary aggregates the trials one bidder won.
type WinnerSummary struct {
	Name  string
	Wins  int
	Goods int
	Spent decimal.Decimal
}

// Summarize groups resolved trials by winner, most wins first. Unresolved
// trials are counted in pending.
func Summarize(trials []game.Trial) (winners []WinnerSummary, pending int) {
	byName := make(map[string]*WinnerSummary)
	for _, t := range trials {
		if !t.Resolved() {
			pending++
			continue
		}
		s, ok := byName[t.Winner]
		if !ok {
			s = &WinnerSummary{Name: t.Winner, Spent: decimal.Zero}
			byName[t.Winner] = s
		}
		s.Wins++
		s.Goods += t.Qty
		s.Spent = s.Spent.Add(decimal.NewFromFloat(t.Price))
	}

	winners = make([]WinnerSummary, 0, len(byName))
	for _, s := range byName {
		winners = append(winners, *s)
	}
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].Wins != winners[j].Wins {
			return winners[i].Wins > winners[j].Wins
		}
		return winners[i].Name < winners[j].Name
	})
	return winners, pending
}

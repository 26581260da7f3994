package state

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ==============================================================================
// PARTICIPANT REGISTRY
// ==============================================================================
//
// Names come from a fixed pool. Each pool entry is a slot; connecting takes the
// lowest free slot and disconnecting frees it. Pool size = max concurrent bidders.
//
// ==============================================================================

// ErrPoolExhausted is returned by Acquire when every name is taken.
var ErrPoolExhausted = errors.New("participant name pool exhausted")

// Participant is one connected bidder and their economic state.
type Participant struct {
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Money       float64   `json:"money"`
	Goods       int       `json:"goods"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type slot struct {
	name        string
	participant *Participant
}

// Registry tracks connected participants. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	slots      []slot
	byName     map[string]int
	startMoney float64
}

// NewRegistry builds a registry over the given name pool.
func NewRegistry(names []string, startMoney float64) *Registry {
	r := &Registry{
		slots:      make([]slot, len(names)),
		byName:     make(map[string]int, len(names)),
		startMoney: startMoney,
	}
	for i, name := range names {
		r.slots[i] = slot{name: name}
		r.byName[name] = i
	}
	return r
}

// Acquire assigns the lowest free name to a new participant.
func (r *Registry) Acquire(address string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].participant != nil {
			continue
		}
		p := &Participant{
			Name:        r.slots[i].name,
			Address:     address,
			Money:       r.startMoney,
			ConnectedAt: time.Now(),
		}
		r.slots[i].participant = p
		return *p, nil
	}
	return Participant{}, ErrPoolExhausted
}

// Release frees the participant's slot; their state is discarded.
func (r *Registry) Release(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byName[name]
	if !ok || r.slots[i].participant == nil {
		return false
	}
	r.slots[i].participant = nil
	return true
}

// Lookup returns a copy of the named participant.
func (r *Registry) Lookup(name string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok || r.slots[i].participant == nil {
		return Participant{}, false
	}
	return *r.slots[i].participant, true
}

// ApplyWin charges price and adds qty goods, capped at maxGoods. It reports
// false when name is not a connected participant.
func (r *Registry) ApplyWin(name string, price float64, qty, maxGoods int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byName[name]
	if !ok || r.slots[i].participant == nil {
		return false
	}
	p := r.slots[i].participant

	p.Money = decimal.NewFromFloat(p.Money).Sub(decimal.NewFromFloat(price)).InexactFloat64()
	p.Goods += qty
	if p.Goods > maxGoods {
		p.Goods = maxGoods
	}
	return true
}

// Snapshot returns copies of all connected participants keyed by name.
func (r *Registry) Snapshot() map[string]Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Participant, len(r.slots))
	for _, s := range r.slots {
		if s.participant != nil {
			out[s.name] = *s.participant
		}
	}
	return out
}

// List returns connected participants in slot order.
func (r *Registry) List() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, 0, len(r.slots))
	for _, s := range r.slots {
		if s.participant != nil {
			out = append(out, *s.participant)
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.slots {
		if s.participant != nil {
			n++
		}
	}
	return n
}

func (r *Registry) Capacity() int { return len(r.slots) }

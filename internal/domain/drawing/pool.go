// Package drawing picks lottery winners from a pool of entrants weighted by
// their number of tickets.
package drawing

import (
	"errors"
	"sort"

	"github.com/questx-lab/luckydraw/pkg/crypto"
)

var ErrEmptyPool = errors.New("pool has no tickets")

type Entrant struct {
	UserID  string
	Tickets int64
}

// Pool keeps one cumulative ticket count per entrant, so memory grows with the
// number of distinct users rather than the number of tickets.
type Pool struct {
	entrants []Entrant
	prefix   []int64
}

// NewPool builds a pool from entrants. Entrants without tickets are dropped.
// The order of entrants must be stable for results to be reproducible with a
// seeded random source.
func NewPool(entrants []Entrant) *Pool {
	p := &Pool{
		entrants: make([]Entrant, 0, len(entrants)),
		prefix:   make([]int64, 0, len(entrants)),
	}

	var total int64
	for _, e := range entrants {
		if e.Tickets <= 0 {
			continue
		}

		total += e.Tickets
		p.entrants = append(p.entrants, e)
		p.prefix = append(p.prefix, total)
	}

	return p
}

func (p *Pool) Len() int {
	return len(p.entrants)
}

func (p *Pool) Total() int64 {
	if len(p.prefix) == 0 {
		return 0
	}

	return p.prefix[len(p.prefix)-1]
}

// Pick draws one entrant using a cryptographic random source.
func (p *Pool) Pick() (Entrant, error) {
	return p.PickWith(crypto.RandInt64n)
}

// PickWith draws one entrant. rand must return a uniform value in [0, n).
func (p *Pool) PickWith(rand func(n int64) int64) (Entrant, error) {
	total := p.Total()
	if total == 0 {
		return Entrant{}, ErrEmptyPool
	}

	value := rand(total)
	i := sort.Search(len(p.prefix), func(i int) bool { return p.prefix[i] > value })
	return p.entrants[i], nil
}

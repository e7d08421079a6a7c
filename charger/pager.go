package charger

import (
	"context"
	"fmt"
	"sync"
)

const DefaultPageThreshold = 3

// Pager accumulates charger pages. The next page starts at the number of chargers
// loaded so far, and more pages are assumed while the last one had at least
// threshold chargers.
type Pager struct {
	api       API
	threshold int

	mu           sync.Mutex
	chargers     []Charger
	lastPageSize int
	loaded       bool
}

func NewPager(api API, threshold int) *Pager {
	if threshold <= 0 {
		threshold = DefaultPageThreshold
	}
	return &Pager{api: api, threshold: threshold}
}

// LoadMore fetches the next page and returns it. On error nothing is merged.
func (p *Pager) LoadMore(ctx context.Context) ([]Charger, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	page, err := p.api.ListChargers(ctx, len(p.chargers))
	if err != nil {
		return nil, fmt.Errorf("[charger LoadMore] offset %d: %w", len(p.chargers), err)
	}
	p.chargers = append(p.chargers, page...)
	p.lastPageSize = len(page)
	p.loaded = true
	return page, nil
}

// LoadAll keeps loading until HasMore is false
func (p *Pager) LoadAll(ctx context.Context) ([]Charger, error) {
	for p.HasMore() {
		if _, err := p.LoadMore(ctx); err != nil {
			return p.Chargers(), err
		}
	}
	return p.Chargers(), nil
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.loaded || p.lastPageSize >= p.threshold
}

// Chargers returns a copy of everything loaded so far
func (p *Pager) Chargers() []Charger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Charger(nil), p.chargers...)
}

func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chargers = nil
	p.lastPageSize = 0
	p.loaded = false
}

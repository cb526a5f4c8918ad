// Package catalog is the static pricing catalog: each answer tier has a
// fixed price and a star-reward policy. Pure lookups, no persistence.
package catalog

import (
	"errors"
	"math/rand/v2"

	"github.com/askielabs/askie-api/internal/money"
)

var ErrUnknownTier = errors.New("unknown answer tier")

const (
	TierHint        = "hint"
	TierWalkthrough = "walkthrough"
	TierPractice    = "practice"
)

// StarPolicy describes how many reward stars a completed session earns.
// A zero policy earns nothing; otherwise a uniform draw in [Min, Max].
type StarPolicy struct {
	Min int
	Max int
}

func (p StarPolicy) Draw() int {
	if p.Max <= 0 {
		return 0
	}
	return p.Min + rand.IntN(p.Max-p.Min+1)
}

type Tier struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       money.Cents `json:"price"`
	Stars       StarPolicy  `json:"-"`
}

// tiers is ordered cheapest first, the way the app presents them.
var tiers = []Tier{
	{
		ID:          TierHint,
		Name:        "Quick Hint",
		Description: "A nudge in the right direction without the full answer",
		Price:       money.Cents(200),
	},
	{
		ID:          TierWalkthrough,
		Name:        "Step-by-Step Walkthrough",
		Description: "The full worked solution, explained step by step",
		Price:       money.Cents(500),
	},
	{
		ID:          TierPractice,
		Name:        "Solution + Practice",
		Description: "Complete solution plus similar practice problems",
		Price:       money.Cents(800),
		Stars:       StarPolicy{Min: 1, Max: 3},
	},
}

func Get(tierID string) (*Tier, error) {
	for i := range tiers {
		if tiers[i].ID == tierID {
			return &tiers[i], nil
		}
	}
	return nil, ErrUnknownTier
}

func List() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

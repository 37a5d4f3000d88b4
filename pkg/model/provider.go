package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type PriceTier string

const (
	PriceBudget   PriceTier = "$"
	PriceStandard PriceTier = "$$"
	PricePremium  PriceTier = "$$$"
	PriceLuxury   PriceTier = "$$$$"
)

// Validate checks the tier is one of $..$$$$
func (p PriceTier) Validate() error {
	switch p {
	case PriceBudget, PriceStandard, PricePremium, PriceLuxury:
		return nil
	default:
		return goerr.Wrap(ErrValidation, "invalid price tier", goerr.V("tier", p))
	}
}

// Score favors cheaper tiers in ranking. Unknown tiers score 0.
func (p PriceTier) Score() float64 {
	switch p {
	case PriceBudget:
		return 3
	case PriceStandard:
		return 2
	case PricePremium:
		return 1
	default:
		return 0
	}
}

type Provider struct {
	Name        string    `json:"name" yaml:"name"`
	Rating      float64   `json:"rating" yaml:"rating"`
	PriceRange  PriceTier `json:"price_range" yaml:"price_range"`
	Distance    float64   `json:"distance" yaml:"-"`
	Address     string    `json:"address" yaml:"address"`
	Phone       string    `json:"phone" yaml:"phone"`
	Specialties []string  `json:"specialties" yaml:"specialties"`
	WaitTime    string    `json:"wait_time" yaml:"wait_time"`
}

type RecommendationSet struct {
	ClaimID      ClaimID      `json:"claim_id"`
	Location     string       `json:"location"`
	IncidentType IncidentType `json:"incident_type"`
	SearchRadius float64      `json:"search_radius"`
	Providers    []*Provider  `json:"recommendations"`
	TotalFound   int          `json:"total_found"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// Top returns the best ranked provider or nil
func (r *RecommendationSet) Top() *Provider {
	if r == nil || len(r.Providers) == 0 {
		return nil
	}
	return r.Providers[0]
}

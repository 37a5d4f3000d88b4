package locator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultMaxResults  = 3
	DefaultRadiusMiles = 10.0

	minDistance = 0.5
)

// Service ranks providers from a catalog for a claim
type Service struct {
	catalog Catalog
	now     func() time.Time
}

func New(catalog Catalog) *Service {
	if catalog == nil {
		catalog = StaticCatalog{}
	}
	return &Service{catalog: catalog, now: time.Now}
}

// Find ranks providers by 2*rating + 1/(distance+0.1) + price score and returns the top entries
func (s *Service) Find(ctx context.Context, claim *model.Claim, opts interfaces.LocateOptions) (*model.RecommendationSet, error) {
	if claim == nil {
		return nil, goerr.Wrap(model.ErrInputMissing, "claim is required to find providers")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.RadiusMiles <= 0 {
		opts.RadiusMiles = DefaultRadiusMiles
	}
	if opts.PriceTier != "" {
		if err := opts.PriceTier.Validate(); err != nil {
			return nil, err
		}
	}

	candidates, err := s.relevant(ctx, claim.IncidentType)
	if err != nil {
		return nil, err
	}

	var filtered []*model.Provider
	for _, p := range candidates {
		if opts.PriceTier != "" && p.PriceRange != opts.PriceTier {
			continue
		}
		if opts.Specialty != "" && !hasSpecialty(p, opts.Specialty) {
			continue
		}
		c := *p
		c.Specialties = append([]string(nil), p.Specialties...)
		c.Distance = distance(claim.Location, p.Name, opts.RadiusMiles)
		filtered = append(filtered, &c)
	}

	if len(filtered) == 0 {
		return nil, goerr.Wrap(model.ErrCollaborator, "no providers found",
			goerr.V("incident_type", claim.IncidentType),
			goerr.V("price_tier", opts.PriceTier),
			goerr.V("specialty", opts.Specialty),
		)
	}

	rank(filtered)
	top := filtered
	if len(top) > opts.MaxResults {
		top = top[:opts.MaxResults]
	}

	return &model.RecommendationSet{
		ClaimID:      claim.ID,
		Location:     claim.Location,
		IncidentType: claim.IncidentType,
		SearchRadius: opts.RadiusMiles,
		Providers:    top,
		TotalFound:   len(filtered),
		GeneratedAt:  s.now(),
	}, nil
}

// Details looks up one provider by name, case-insensitively
func (s *Service) Details(ctx context.Context, name string, incident model.IncidentType) (*model.Provider, error) {
	candidates, err := s.relevant(ctx, incident)
	if err != nil {
		return nil, err
	}
	for _, p := range candidates {
		if strings.EqualFold(p.Name, name) {
			c := *p
			return &c, nil
		}
	}
	return nil, goerr.Wrap(model.ErrCollaborator, "provider not found", goerr.V("name", name))
}

// relevant picks the catalog category for the incident, falling back by keyword and then to car repair
func (s *Service) relevant(ctx context.Context, incident model.IncidentType) ([]*model.Provider, error) {
	providers, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, goerr.Wrap(model.ErrCollaborator, "failed to load provider catalog", goerr.V("error", err.Error()))
	}

	if list, ok := providers[incident]; ok {
		return list, nil
	}

	lower := strings.ToLower(string(incident))
	switch {
	case strings.Contains(lower, "accident") || strings.Contains(lower, "vehicle"):
		return providers[model.IncidentCarAccident], nil
	case strings.Contains(lower, "home") || strings.Contains(lower, "property"):
		return providers[model.IncidentHomeDamage], nil
	default:
		return providers[model.IncidentCarAccident], nil
	}
}

func hasSpecialty(p *model.Provider, specialty string) bool {
	joined := strings.ToLower(strings.Join(p.Specialties, " "))
	return strings.Contains(joined, strings.ToLower(specialty))
}

// distance is a stable pseudo-distance in [0.5, radius] derived from location and provider name
func distance(location, name string, radius float64) float64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(location)))
	h.Write([]byte{0})
	h.Write([]byte(name))

	frac := float64(h.Sum64()%10000) / 9999
	upper := math.Max(radius, minDistance)
	d := minDistance + frac*(upper-minDistance)
	return math.Round(d*10) / 10
}

func score(p *model.Provider) float64 {
	return p.Rating*2 + 1/(p.Distance+0.1) + p.PriceRange.Score()
}

func rank(providers []*model.Provider) {
	sort.SliceStable(providers, func(i, j int) bool {
		return score(providers[i]) > score(providers[j])
	})
}

// Summary describes the recommendations in a few sentences
func Summary(set *model.RecommendationSet) string {
	top := set.Top()
	if top == nil {
		return "No repair shops found in your area."
	}

	parts := []string{
		fmt.Sprintf("I found %d highly-rated repair shops near %s for your %s.",
			len(set.Providers), set.Location, strings.ToLower(string(set.IncidentType))),
		fmt.Sprintf("My top recommendation is %s, which has a %.1f star rating and is %.1f mi away.",
			top.Name, top.Rating, top.Distance),
	}
	if len(top.Specialties) > 0 {
		n := min(2, len(top.Specialties))
		parts = append(parts, fmt.Sprintf("They specialize in %s.", strings.Join(top.Specialties[:n], ", ")))
	}
	if top.WaitTime != "" {
		parts = append(parts, fmt.Sprintf("Estimated wait time: %s.", top.WaitTime))
	}
	return strings.Join(parts, " ")
}

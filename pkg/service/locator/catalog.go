package locator

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Providers groups provider entries by the incident type they serve
type Providers map[model.IncidentType][]*model.Provider

// Catalog is a source of provider entries
type Catalog interface {
	Load(ctx context.Context) (Providers, error)
}

// StaticCatalog serves the built-in provider list
type StaticCatalog struct{}

func (StaticCatalog) Load(ctx context.Context) (Providers, error) {
	return builtinProviders(), nil
}

func builtinProviders() Providers {
	return Providers{
		model.IncidentCarAccident: {
			{
				Name: "Princeton AutoFix", Rating: 4.8, PriceRange: model.PriceStandard,
				Address: "123 Nassau St, Princeton, NJ 08542", Phone: "(609) 555-0100",
				Specialties: []string{"Collision Repair", "Paint", "Body Work"}, WaitTime: "2-3 days",
			},
			{
				Name: "NJ Collision Works", Rating: 4.6, PriceRange: model.PriceBudget,
				Address: "456 Alexander Rd, Princeton, NJ 08540", Phone: "(609) 555-0200",
				Specialties: []string{"Auto Body", "Frame Repair", "Dent Removal"}, WaitTime: "3-5 days",
			},
			{
				Name: "Elite Auto Restoration", Rating: 4.9, PriceRange: model.PricePremium,
				Address: "789 Route 1, Lawrence, NJ 08648", Phone: "(609) 555-0300",
				Specialties: []string{"Luxury Cars", "Collision", "Custom Paint"}, WaitTime: "1 week",
			},
			{
				Name: "QuickFix Auto Center", Rating: 4.3, PriceRange: model.PriceBudget,
				Address: "321 US-1, Lawrenceville, NJ 08648", Phone: "(609) 555-0400",
				Specialties: []string{"Quick Repairs", "Insurance Claims", "Rentals"}, WaitTime: "1-2 days",
			},
			{
				Name: "Prestige Collision Repair", Rating: 4.7, PriceRange: model.PriceStandard,
				Address: "654 Quaker Bridge Rd, Hamilton, NJ 08619", Phone: "(609) 555-0500",
				Specialties: []string{"Certified Repairs", "All Makes", "Warranty"}, WaitTime: "3-4 days",
			},
		},
		model.IncidentHomeDamage: {
			{
				Name: "Princeton Home Restoration", Rating: 4.7, PriceRange: model.PricePremium,
				Address: "100 Nassau St, Princeton, NJ 08542", Phone: "(609) 555-1100",
				Specialties: []string{"Water Damage", "Fire Restoration", "Mold"}, WaitTime: "1-2 weeks",
			},
			{
				Name: "Quick Response Restoration", Rating: 4.5, PriceRange: model.PriceStandard,
				Address: "200 Alexander St, Princeton, NJ 08540", Phone: "(609) 555-1200",
				Specialties: []string{"Emergency Service", "24/7", "Insurance"}, WaitTime: "Same day",
			},
			{
				Name: "Elite Home Repair Services", Rating: 4.8, PriceRange: model.PriceStandard,
				Address: "300 Route 1, Lawrenceville, NJ 08648", Phone: "(609) 555-1300",
				Specialties: []string{"General Repairs", "Roofing", "Plumbing"}, WaitTime: "3-5 days",
			},
		},
		model.IncidentMedical: {
			{
				Name: "Princeton Medical Center", Rating: 4.6, PriceRange: model.PricePremium,
				Address: "1 Plainsboro Rd, Plainsboro, NJ 08536", Phone: "(609) 555-2100",
				Specialties: []string{"Emergency Care", "Surgery", "Rehabilitation"},
				WaitTime:    "ER: immediate, Appointments: 1-2 weeks",
			},
			{
				Name: "NJ Physical Therapy Center", Rating: 4.7, PriceRange: model.PriceStandard,
				Address: "500 College Rd, Princeton, NJ 08540", Phone: "(609) 555-2200",
				Specialties: []string{"Physical Therapy", "Sports Medicine", "Rehab"}, WaitTime: "2-3 days",
			},
		},
	}
}

// yamlCatalogFile is the on-disk layout:
//
//	providers:
//	  Car Accident:
//	    - name: ...
type yamlCatalogFile struct {
	Providers map[string][]*model.Provider `yaml:"providers"`
}

// YAMLCatalog serves providers read from a YAML file at construction time
type YAMLCatalog struct {
	providers Providers
}

func NewYAMLCatalog(path string) (*YAMLCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read provider catalog", goerr.V("path", path))
	}
	return ParseYAMLCatalog(raw)
}

// ParseYAMLCatalog validates every entry and rejects an empty catalog
func ParseYAMLCatalog(raw []byte) (*YAMLCatalog, error) {
	var file yamlCatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(model.ErrValidation, "failed to parse provider catalog", goerr.V("error", err.Error()))
	}
	if len(file.Providers) == 0 {
		return nil, goerr.Wrap(model.ErrValidation, "provider catalog is empty")
	}

	providers := make(Providers, len(file.Providers))
	for category, entries := range file.Providers {
		for _, p := range entries {
			if err := validateProvider(p); err != nil {
				return nil, goerr.Wrap(err, "invalid provider entry", goerr.V("category", category))
			}
		}
		providers[model.IncidentType(category)] = entries
	}
	return &YAMLCatalog{providers: providers}, nil
}

func (c *YAMLCatalog) Load(ctx context.Context) (Providers, error) {
	return c.providers, nil
}

func validateProvider(p *model.Provider) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return goerr.Wrap(model.ErrValidation, "provider name is required")
	}
	if p.Rating < 0 || p.Rating > 5 {
		return goerr.Wrap(model.ErrValidation, "rating must be between 0 and 5", goerr.V("name", p.Name), goerr.V("rating", p.Rating))
	}
	if err := p.PriceRange.Validate(); err != nil {
		return goerr.Wrap(err, "invalid price range", goerr.V("name", p.Name))
	}
	return nil
}

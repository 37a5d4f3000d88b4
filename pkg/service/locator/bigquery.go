package locator

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// QueryRunner is the subset of the BigQuery adapter the catalog needs
type QueryRunner interface {
	DryRun(ctx context.Context, query string) (int64, error)
	Query(ctx context.Context, query string) (string, error)
	GetQueryResult(ctx context.Context, jobID string) ([]map[string]any, error)
}

const defaultScanLimit = 100 * 1024 * 1024

// BigQueryCatalog loads provider rows from a BigQuery table with columns
// incident_type, name, rating, price_range, address, phone, specialties (ARRAY<STRING>), wait_time.
type BigQueryCatalog struct {
	client    QueryRunner
	table     string
	scanLimit int64
}

type BigQueryCatalogOption func(*BigQueryCatalog)

// WithScanLimit rejects queries that would scan more bytes than limit
func WithScanLimit(limit int64) BigQueryCatalogOption {
	return func(c *BigQueryCatalog) {
		c.scanLimit = limit
	}
}

// NewBigQueryCatalog takes a fully qualified table name, project.dataset.table
func NewBigQueryCatalog(client QueryRunner, table string, opts ...BigQueryCatalogOption) (*BigQueryCatalog, error) {
	if client == nil {
		return nil, goerr.New("bigquery client is required")
	}
	if strings.Count(table, ".") != 2 {
		return nil, goerr.Wrap(model.ErrValidation, "table must be project.dataset.table", goerr.V("table", table))
	}

	c := &BigQueryCatalog{
		client:    client,
		table:     table,
		scanLimit: defaultScanLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *BigQueryCatalog) query() string {
	return fmt.Sprintf("SELECT incident_type, name, rating, price_range, address, phone, "+
		"ARRAY_TO_STRING(specialties, '|') AS specialties, wait_time FROM `%s`", c.table)
}

func (c *BigQueryCatalog) Load(ctx context.Context) (Providers, error) {
	query := c.query()

	scanned, err := c.client.DryRun(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to dry-run provider query", goerr.V("table", c.table))
	}
	if scanned > c.scanLimit {
		return nil, goerr.New("provider query exceeds scan limit",
			goerr.V("bytes", scanned),
			goerr.V("limit", c.scanLimit),
		)
	}

	jobID, err := c.client.Query(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query providers", goerr.V("table", c.table))
	}
	rows, err := c.client.GetQueryResult(ctx, jobID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read provider rows", goerr.V("job_id", jobID))
	}

	providers := make(Providers)
	for _, row := range rows {
		p := &model.Provider{
			Name:       asString(row["name"]),
			Rating:     asFloat(row["rating"]),
			PriceRange: model.PriceTier(asString(row["price_range"])),
			Address:    asString(row["address"]),
			Phone:      asString(row["phone"]),
			WaitTime:   asString(row["wait_time"]),
		}
		if s := asString(row["specialties"]); s != "" {
			p.Specialties = strings.Split(s, "|")
		}
		if err := validateProvider(p); err != nil {
			logging.From(ctx).Warn("skip invalid provider row", "error", err, "name", p.Name)
			continue
		}

		category := model.IncidentType(asString(row["incident_type"]))
		providers[category] = append(providers[category], p)
	}

	logging.From(ctx).Debug("provider catalog loaded", "table", c.table, "rows", len(rows), "bytes", scanned)
	return providers, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	default:
		return 0
	}
}

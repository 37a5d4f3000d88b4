package adapter

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// BigQuery runs provider catalog queries. It satisfies locator.QueryRunner.
type BigQuery interface {
	// DryRun executes a query in dry-run mode and returns the number of bytes that will be scanned
	DryRun(ctx context.Context, query string) (int64, error)

	// Query executes a query, waits for completion and returns the job ID
	Query(ctx context.Context, query string) (string, error)

	// GetQueryResult retrieves the rows of a finished query job
	GetQueryResult(ctx context.Context, jobID string) ([]map[string]any, error)
}

type bigqueryClient struct {
	client   *bigquery.Client
	location string
}

type BigQueryOption func(*bigqueryClient)

// WithBigQueryLocation pins query jobs to a dataset location such as "US"
func WithBigQueryLocation(location string) BigQueryOption {
	return func(bq *bigqueryClient) {
		bq.location = location
	}
}

func NewBigQuery(ctx context.Context, projectID string, opts ...BigQueryOption) (BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client", goerr.V("project", projectID))
	}

	bq := &bigqueryClient{client: client}
	for _, opt := range opts {
		opt(bq)
	}
	if bq.location != "" {
		client.Location = bq.location
	}

	return bq, nil
}

func (bq *bigqueryClient) DryRun(ctx context.Context, query string) (int64, error) {
	q := bq.client.Query(query)
	q.DryRun = true

	job, err := q.Run(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to run dry-run query", goerr.V("query", query))
	}

	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return 0, goerr.New("no statistics available from dry-run")
	}

	return status.Statistics.TotalBytesProcessed, nil
}

func (bq *bigqueryClient) Query(ctx context.Context, query string) (string, error) {
	job, err := bq.client.Query(query).Run(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to run query", goerr.V("query", query))
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to wait for query completion", goerr.V("job_id", job.ID()))
	}
	if status.Err() != nil {
		return "", goerr.Wrap(status.Err(), "query execution failed", goerr.V("job_id", job.ID()))
	}

	return job.ID(), nil
}

func (bq *bigqueryClient) GetQueryResult(ctx context.Context, jobID string) ([]map[string]any, error) {
	job, err := bq.client.JobFromIDLocation(ctx, jobID, bq.client.Location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get job from ID", goerr.V("job_id", jobID))
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read query result", goerr.V("job_id", jobID))
	}

	var results []map[string]any
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate query result", goerr.V("job_id", jobID))
		}

		rowMap := make(map[string]any, len(row))
		for k, v := range row {
			rowMap[k] = v
		}
		results = append(results, rowMap)
	}

	return results, nil
}

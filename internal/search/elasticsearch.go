package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/rs/zerolog/log"

	"example.com/shopfloor/services/report/config"
	"example.com/shopfloor/services/report/internal/models"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	elasticCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
	}
	if cfg.Username != "" && cfg.Password != "" {
		elasticCfg.Username = cfg.Username
		elasticCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(elasticCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("error connecting to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	log.Info().Msg("Connected to Elasticsearch")
	return &ElasticClient{client: client, config: cfg}, nil
}

// IndexReportSummary indexes one snapshot's headline numbers so fleet-wide
// dashboards can query utilization without loading row payloads
func (ec *ElasticClient) IndexReportSummary(ctx context.Context, snap *models.ReportSnapshot) error {
	log.Info().
		Str("mcu", snap.MCU).
		Time("day", snap.Day).
		Msg("Indexing report summary in Elasticsearch")

	doc := map[string]interface{}{
		"mcu":             snap.MCU,
		"day":             snap.Day,
		"window_from":     snap.WindowFrom,
		"window_to":       snap.WindowTo,
		"row_count":       snap.RowCount,
		"total_jobs":      snap.TotalJobs,
		"total_cycles":    snap.TotalCycles,
		"cutting_sec":     snap.CuttingSec,
		"pause_sec":       snap.PauseSec,
		"loading_sec":     snap.LoadingSec,
		"idle_sec":        snap.IdleSec,
		"utilization_pct": snap.UtilizationPct,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling summary document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(ec.config, ec.config.Index),
		DocumentID: fmt.Sprintf("%s:%s", snap.MCU, snap.Day.Format("2006-01-02")),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ec.client)
	if err != nil {
		return fmt.Errorf("error indexing summary: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return fmt.Errorf("error parsing error response: %w", err)
		}
		return fmt.Errorf("error indexing summary: %v", e)
	}

	return nil
}

// SearchSummaries runs a query against the summary index and returns the
// matching documents
func (ec *ElasticClient) SearchSummaries(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("error marshaling search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{config.FormatIndex(ec.config, ec.config.Index)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, ec.client)
	if err != nil {
		return nil, fmt.Errorf("error searching summaries: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, fmt.Errorf("error parsing error response: %w", err)
		}
		return nil, fmt.Errorf("error searching summaries: %v", e)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing search response: %w", err)
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected search response format")
	}
	hitsList, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected hits format")
	}

	summaries := make([]map[string]interface{}, 0, len(hitsList))
	for _, hit := range hitsList {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		summaries = append(summaries, source)
	}

	return summaries, nil
}

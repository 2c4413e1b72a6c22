package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

// ElasticPublisher indexes events as audit documents.
type ElasticPublisher struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticPublisher(cfg elasticsearch.Config, index string) (*ElasticPublisher, error) {
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}
	return &ElasticPublisher{client: client, index: index}, nil
}

func (p *ElasticPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("elasticsearch: marshal event: %w", err)
	}

	res, err := p.client.Index(p.index, bytes.NewReader(data), p.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("elasticsearch: index %s: %s: %s", p.index, res.Status(), body)
	}
	return nil
}

// Ping asks the cluster for its info and fails on a transport or status error.
func (p *ElasticPublisher) Ping(ctx context.Context) error {
	res, err := p.client.Info(p.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch: info: %s", res.Status())
	}
	return nil
}

func (p *ElasticPublisher) Close() error { return nil }

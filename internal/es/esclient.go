package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/pokedex/internal/models"
)

var ErrUnavailable = errors.New("elasticsearch unavailable")

type Document struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Abilities string  `json:"abilities"`
	Types     string  `json:"types"`
	Rating    float64 `json:"rating"`
	Image     string  `json:"image"`
}

func DocumentFrom(p *models.Pokemon) Document {
	return Document{
		ID:        p.ID,
		Name:      p.Name,
		Abilities: p.Abilities,
		Types:     p.Types,
		Rating:    p.Rating,
		Image:     p.Image,
	}
}

type Index struct {
	client *elasticsearch.Client
	name   string
}

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

// NewIndex connects and checks the cluster answers before returning.
func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, res.Status(), body)
	}

	name := cfg.Index
	if name == "" {
		name = "pokemon"
	}
	return &Index{client: client, name: name}, nil
}

func (ix *Index) Put(ctx context.Context, doc Document) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}

	res, err := ix.client.Index(
		ix.name,
		&buf,
		ix.client.Index.WithContext(ctx),
		ix.client.Index.WithDocumentID(strconv.FormatUint(uint64(doc.ID), 10)),
		ix.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("es: index %d: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es: index %d: %s", doc.ID, res.Status())
	}
	return nil
}

func (ix *Index) Remove(ctx context.Context, id uint) error {
	res, err := ix.client.Delete(
		ix.name,
		strconv.FormatUint(uint64(id), 10),
		ix.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es: delete %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es: delete %d: %s", id, res.Status())
	}
	return nil
}

// Search returns the total hit count and the ids of one page of matches,
// best match first.
func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []uint, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "types", "abilities"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(ix.name),
		ix.client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("es: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return r.Hits.Total.Value, ids, nil
}

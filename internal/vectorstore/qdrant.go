package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

type qdrantConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// qdrantStore is a minimal REST client to Qdrant. The collection is created
// lazily on first upsert, once the embedding dimension is known, with cosine
// distance.
type qdrantStore struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	initOnce sync.Once
	initErr  error
}

func newQdrantStore(args FactoryArgs) (Store, error) {
	cfg := &qdrantConfig{}
	if err := decodeConfig(args.Data, cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant store requires url")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &qdrantStore{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: args.Collection,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (s *qdrantStore) ensureCollection(ctx context.Context, dimension int) error {
	s.initOnce.Do(func() {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		s.initErr = s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
	})
	return s.initErr
}

func (s *qdrantStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(entries[0].Vector)); err != nil {
		return err
	}
	points := make([]map[string]any, len(entries))
	for i, entry := range entries {
		payload := map[string]any{"text": entry.Text}
		for k, v := range entry.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      entry.ID,
			"vector":  entry.Vector,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

func (s *qdrantStore) Query(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 4
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(resp.Result))
	for _, r := range resp.Result {
		item := Result{Score: r.Score, Metadata: map[string]string{}}
		for k, v := range r.Payload {
			str, ok := v.(string)
			if !ok {
				continue
			}
			if k == "text" {
				item.Text = str
				continue
			}
			item.Metadata[k] = str
		}
		results = append(results, item)
	}
	return results, nil
}

func (s *qdrantStore) putJSON(ctx context.Context, url string, body any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *qdrantStore) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *qdrantStore) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func init() {
	Register("qdrant", newQdrantStore)
}

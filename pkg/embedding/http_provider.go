package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider implements EmbeddingProvider against the platform's embedding
// service. The service accepts a scalar "text" field for a single input and an
// array for batches, and its response shape varies by deployment, so decoding
// walks a fixed set of known shapes.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type httpEmbedRequest struct {
	Text any `json:"text"`
}

func (p *HTTPProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *HTTPProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrNoInput
	}

	// Single input goes out as a scalar, batches as an array.
	var payload httpEmbedRequest
	if len(texts) == 1 {
		payload.Text = texts[0]
	} else {
		payload.Text = texts
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/embed", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			Service:    "embedding",
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	vectors, err := decodeEmbeddings(bodyBytes)
	if err != nil {
		return nil, err
	}
	if err := validateVectors("embedding", texts, vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// decodeEmbeddings tries each response shape the service is known to emit, in
// order of how common they are.
func decodeEmbeddings(body []byte) ([][]float32, error) {
	// Bare array of vectors.
	var batch [][]float32
	if err := json.Unmarshal(body, &batch); err == nil && len(batch) > 0 {
		return batch, nil
	}

	// Bare single vector.
	var single []float32
	if err := json.Unmarshal(body, &single); err == nil && len(single) > 0 {
		return [][]float32{single}, nil
	}

	// Object forms.
	var obj struct {
		Embeddings [][]float32 `json:"embeddings"`
		Vectors    [][]float32 `json:"vectors"`
		Embedding  []float32   `json:"embedding"`
		Data       []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		switch {
		case len(obj.Embeddings) > 0:
			return obj.Embeddings, nil
		case len(obj.Vectors) > 0:
			return obj.Vectors, nil
		case len(obj.Data) > 0:
			out := make([][]float32, len(obj.Data))
			for i, d := range obj.Data {
				out[i] = d.Embedding
			}
			return out, nil
		case len(obj.Embedding) > 0:
			return [][]float32{obj.Embedding}, nil
		}
	}

	return nil, &UpstreamError{
		Service: "embedding",
		Body:    fmt.Sprintf("unrecognized response shape: %s", truncate(string(body), 200)),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(handler http.HandlerFunc) (*HTTPProvider, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewHTTPProvider(srv.URL, "test-key", 0), srv
}

func TestEmbedTextsResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want [][]float32
	}{
		{
			name: "bare array of vectors",
			body: `[[0.1, 0.2], [0.3, 0.4]]`,
			want: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		},
		{
			name: "bare single vector",
			body: `[0.5, 0.6]`,
			want: [][]float32{{0.5, 0.6}},
		},
		{
			name: "embeddings field",
			body: `{"embeddings": [[1, 2], [3, 4]]}`,
			want: [][]float32{{1, 2}, {3, 4}},
		},
		{
			name: "vectors field",
			body: `{"vectors": [[7, 8], [9, 10]]}`,
			want: [][]float32{{7, 8}, {9, 10}},
		},
		{
			name: "openai style data objects",
			body: `{"data": [{"embedding": [0.1]}, {"embedding": [0.2]}]}`,
			want: [][]float32{{0.1}, {0.2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			defer srv.Close()

			texts := make([]string, len(tt.want))
			for i := range texts {
				texts[i] = "text"
			}

			got, err := provider.EmbedTexts(context.Background(), texts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbedTextsSingleVectorObjectForm(t *testing.T) {
	provider, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding": [0.9, 0.8]}`))
	})
	defer srv.Close()

	got, err := provider.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.9, 0.8}, got)
}

func TestEmbedTextsPayloadShape(t *testing.T) {
	var captured map[string]json.RawMessage

	provider, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		w.Write([]byte(`[[0.1], [0.2]]`))
	})
	defer srv.Close()

	// Single text goes out as a scalar field.
	srvSingle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		w.Write([]byte(`[0.1]`))
	}))
	defer srvSingle.Close()

	single := NewHTTPProvider(srvSingle.URL, "", 0)
	_, err := single.EmbedText(context.Background(), "only one")
	require.NoError(t, err)
	assert.JSONEq(t, `"only one"`, string(captured["text"]))

	// Batches go out as an array.
	_, err = provider.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a", "b"]`, string(captured["text"]))
}

func TestEmbedTextsAuthHeader(t *testing.T) {
	var gotAuth string
	provider, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[0.1]`))
	})
	defer srv.Close()

	_, err := provider.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestEmbedTextsUpstreamFailure(t *testing.T) {
	provider, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("model unavailable"))
	})
	defer srv.Close()

	_, err := provider.EmbedTexts(context.Background(), []string{"x"})
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "model unavailable")
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	provider, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[0.1]]`)) // one vector for two texts
	})
	defer srv.Close()

	_, err := provider.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings")
}

func TestEmbedTextsUnrecognizedShape(t *testing.T) {
	provider, srv := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	})
	defer srv.Close()

	_, err := provider.EmbedTexts(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized response shape")
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	provider := NewHTTPProvider("http://unused", "", 0)
	_, err := provider.EmbedTexts(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoInput)

	// Nothing to embed is a caller mistake, not an upstream fault.
	var upstream *UpstreamError
	assert.False(t, errors.As(err, &upstream))

	ollama := NewOllamaProvider("http://unused", "")
	_, err = ollama.EmbedTexts(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoInput)
}

func TestNormalizeVector(t *testing.T) {
	got := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	zero := normalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

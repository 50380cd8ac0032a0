package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ai-drafting-be/internal/pkg/logger"
)

const (
	// maxTopKWithMetadata is the upstream's result ceiling when metadata is
	// requested. Larger values are clamped, not rejected.
	maxTopKWithMetadata = 20
)

// Config holds the connection settings for the managed vector index. An empty
// BaseURL means the index is not provisioned; the client then behaves as an
// empty index instead of failing.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// Metadata is the per-vector payload stored alongside each embedding. The
// organization and source ids are what query filters and chunk resolution key
// on, so both are mandatory at upsert time.
type Metadata struct {
	OrganizationID  string `json:"organizationId"`
	SourceContentID string `json:"sourceContentId"`
	ChunkIndex      int    `json:"chunkIndex"`
}

// Record is one vector to upsert.
type Record struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// Query is a similarity search request.
type Query struct {
	Vector         []float32
	TopK           int
	Filter         map[string]string
	ReturnMetadata bool
}

// Match is one similarity hit.
type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// UpstreamError is returned for non-2xx responses from the index.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("vectorindex: upstream returned status %d: %s", e.StatusCode, e.Body)
}

// ValidationError reports a bad record found during pre-flight batch
// validation, before any network call.
type ValidationError struct {
	Position int
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("vectorindex: record %d: %s", e.Position, e.Reason)
}

// Client is a REST client for the managed vector index.
type Client struct {
	cfg    Config
	log    logger.ILogger
	client *http.Client
}

func NewClient(cfg Config, log logger.ILogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the index connection is provisioned.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

// RecordID builds the deterministic vector id for a chunk, so re-ingesting a
// source overwrites its previous vectors instead of accumulating duplicates.
func RecordID(sourceContentID string, chunkIndex int) string {
	return sourceContentID + ":" + strconv.Itoa(chunkIndex)
}

// ParseRecordID splits a vector id back into its source id and chunk index.
func ParseRecordID(id string) (sourceContentID string, chunkIndex int, err error) {
	sep := strings.LastIndex(id, ":")
	if sep <= 0 || sep == len(id)-1 {
		return "", 0, fmt.Errorf("vectorindex: malformed record id %q", id)
	}
	idx, err := strconv.Atoi(id[sep+1:])
	if err != nil {
		return "", 0, fmt.Errorf("vectorindex: malformed record id %q", id)
	}
	return id[:sep], idx, nil
}

type upsertRequest struct {
	Vectors []Record `json:"vectors"`
}

// UpsertVectors writes a batch of records. The whole batch is validated first;
// a single bad record fails the call with no partial write attempted.
func (c *Client) UpsertVectors(ctx context.Context, records []Record) error {
	if !c.Configured() {
		c.log.Warn("vectorindex", "upsert skipped, index not configured", map[string]interface{}{
			"records": len(records),
		})
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	for i, r := range records {
		switch {
		case r.ID == "":
			return &ValidationError{Position: i, Reason: "missing id"}
		case len(r.Values) == 0:
			return &ValidationError{Position: i, Reason: "empty values"}
		case r.Metadata.OrganizationID == "":
			return &ValidationError{Position: i, Reason: "missing organizationId metadata"}
		case r.Metadata.SourceContentID == "":
			return &ValidationError{Position: i, Reason: "missing sourceContentId metadata"}
		}
	}

	var out struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := c.post(ctx, "/upsert", upsertRequest{Vectors: records}, &out); err != nil {
		return err
	}

	c.log.Info("vectorindex", "upserted vectors", map[string]interface{}{
		"requested": len(records),
		"upserted":  out.UpsertedCount,
	})
	return nil
}

type queryRequest struct {
	TopK           int               `json:"topK"`
	Vector         []float32         `json:"vector"`
	Filter         map[string]string `json:"filter,omitempty"`
	ReturnMetadata bool              `json:"returnMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       json.RawMessage `json:"id"`
		Score    float64         `json:"score"`
		Metadata Metadata        `json:"metadata"`
	} `json:"matches"`
}

// QueryVectorMatches runs a similarity search. An unconfigured index or an
// empty query vector yields no matches and no error.
func (c *Client) QueryVectorMatches(ctx context.Context, q Query) ([]Match, error) {
	if !c.Configured() || len(q.Vector) == 0 {
		return nil, nil
	}

	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	if q.ReturnMetadata && topK > maxTopKWithMetadata {
		c.log.Warn("vectorindex", "topK clamped for metadata query", map[string]interface{}{
			"requested": topK,
			"clamped":   maxTopKWithMetadata,
		})
		topK = maxTopKWithMetadata
	}

	var out queryResponse
	err := c.post(ctx, "/query", queryRequest{
		TopK:           topK,
		Vector:         q.Vector,
		Filter:         q.Filter,
		ReturnMetadata: q.ReturnMetadata,
	}, &out)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(out.Matches))
	for _, m := range out.Matches {
		// Some index versions emit numeric or null ids for stale rows.
		var id string
		if err := json.Unmarshal(m.ID, &id); err != nil || id == "" {
			c.log.Warn("vectorindex", "dropping match without a usable id", map[string]interface{}{
				"raw_id": string(m.ID),
			})
			continue
		}
		matches = append(matches, Match{ID: id, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if out != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("vectorindex: decode %s response: %w", path, err)
		}
	}
	return nil
}

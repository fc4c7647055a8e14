package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one enrolled identity in the vector index: the stored
// reference embedding plus the content hash of the photo it was
// extracted from. The record id is the identity UUID.
type Record struct {
	ID     uuid.UUID
	Vector []float32
	Hash   string
	Name   string
}

// Match is a nearest-neighbor hit within the configured distance bound.
type Match struct {
	IdentityID uuid.UUID
	Name       string
	Distance   float64
}

// Client is a thin JSON-over-HTTP client for the vector index. It
// speaks the index's object and GraphQL APIs directly; no generated
// SDK, just the three calls the pipeline needs.
type Client struct {
	baseURL    string
	class      string
	httpClient *http.Client
}

func NewClient(baseURL, class string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		class:      class,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type objectPayload struct {
	Class      string           `json:"class"`
	ID         string           `json:"id"`
	Vector     []float32        `json:"vector"`
	Properties objectProperties `json:"properties"`
}

type objectProperties struct {
	Hash string `json:"hash"`
	Name string `json:"name"`
}

// GetRecord looks up the stored record for an identity. A missing
// record is not an error; it comes back as (nil, nil) and signals that
// the identity has never been enrolled.
func (c *Client) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	url := fmt.Sprintf("%s/v1/objects/%s/%s?include=vector", c.baseURL, c.class, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create index request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not query vector index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	var payload objectPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("could not unmarshal index object: %w", err)
	}

	return &Record{
		ID:     id,
		Vector: payload.Vector,
		Hash:   payload.Properties.Hash,
		Name:   payload.Properties.Name,
	}, nil
}

// PutRecord stores or replaces an identity's record. exists selects
// between creation and full replacement; the index treats them as
// distinct operations.
func (c *Client) PutRecord(ctx context.Context, rec *Record, exists bool) error {
	payload := objectPayload{
		Class:  c.class,
		ID:     rec.ID.String(),
		Vector: rec.Vector,
		Properties: objectProperties{
			Hash: rec.Hash,
			Name: rec.Name,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not marshal index object: %w", err)
	}

	method := http.MethodPost
	url := c.baseURL + "/v1/objects"
	if exists {
		method = http.MethodPut
		url = fmt.Sprintf("%s/v1/objects/%s/%s", c.baseURL, c.class, rec.ID)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not store index object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("index store failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

type graphqlRequest struct {
	Query string `json:"query"`
}

type nearSearchResponse struct {
	Data struct {
		Get map[string][]struct {
			Name       string `json:"name"`
			Additional struct {
				ID       string  `json:"id"`
				Distance float64 `json:"distance"`
			} `json:"_additional"`
		} `json:"Get"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NearSearch returns the single nearest enrolled identity within
// maxDistance of the probe vector, or nil when nothing is close
// enough. The distance bound is enforced index-side; results are
// never re-ranked here.
func (c *Client) NearSearch(ctx context.Context, vector []float32, maxDistance float64) (*Match, error) {
	var vec strings.Builder
	for i, v := range vector {
		if i > 0 {
			vec.WriteString(", ")
		}
		fmt.Fprintf(&vec, "%g", v)
	}

	query := fmt.Sprintf(
		`{ Get { %s(nearVector: {vector: [%s], distance: %g}, limit: 1) { name _additional { id distance } } } }`,
		c.class, vec.String(), maxDistance,
	)

	body, err := json.Marshal(graphqlRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("could not marshal search query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not run vector search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("vector search failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed nearSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not unmarshal search response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("vector search failed: %s", parsed.Errors[0].Message)
	}

	hits := parsed.Data.Get[c.class]
	if len(hits) == 0 {
		return nil, nil
	}

	identityID, err := uuid.Parse(hits[0].Additional.ID)
	if err != nil {
		return nil, fmt.Errorf("vector search returned malformed id '%s': %w", hits[0].Additional.ID, err)
	}

	return &Match{
		IdentityID: identityID,
		Name:       hits[0].Name,
		Distance:   hits[0].Additional.Distance,
	}, nil
}

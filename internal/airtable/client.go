package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// ErrRecordNotFound is returned when the store has no record for the given ID.
var ErrRecordNotFound = errors.New("airtable: record not found")

// Record represents a raw record as returned by the Airtable API. Fields are
// loosely typed; callers are expected to normalize them immediately.
type Record struct {
	ID          string                 `json:"id"`
	CreatedTime string                 `json:"createdTime"`
	Fields      map[string]interface{} `json:"fields"`
}

// SelectOptions configures a Select call.
type SelectOptions struct {
	FilterByFormula string
	SortField       string
	SortDirection   string
	PageSize        int
}

// Client is an HTTP client for the Airtable REST API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a new Client for the given base. The API endpoint can be
// overridden with AIRTABLE_API_URL, which tests use to point at a fake server.
func NewClient(apiKey, baseID string) *Client {
	apiURL := os.Getenv("AIRTABLE_API_URL")
	if apiURL == "" {
		apiURL = "https://api.airtable.com/v0"
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: fmt.Sprintf("%s/%s", apiURL, baseID),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Select fetches every record of a table matching the options. Airtable pages
// results at 100 records; the client follows the offset token until the set is
// exhausted, so the caller always receives the full filtered set.
func (c *Client) Select(ctx context.Context, table string, opts SelectOptions) ([]Record, error) {
	var records []Record
	offset := ""

	for {
		params := url.Values{}
		if opts.FilterByFormula != "" {
			params.Set("filterByFormula", opts.FilterByFormula)
		}
		if opts.SortField != "" {
			params.Set("sort[0][field]", opts.SortField)
			direction := opts.SortDirection
			if direction == "" {
				direction = "asc"
			}
			params.Set("sort[0][direction]", direction)
		}
		if opts.PageSize > 0 {
			params.Set("pageSize", strconv.Itoa(opts.PageSize))
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		endpoint := c.tableURL(table)
		if encoded := params.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}

		var page struct {
			Records []Record `json:"records"`
			Offset  string   `json:"offset"`
		}
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		records = append(records, page.Records...)
		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

// Find fetches a single record by ID.
func (c *Client) Find(ctx context.Context, table, id string) (*Record, error) {
	var record Record
	endpoint := fmt.Sprintf("%s/%s", c.tableURL(table), url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new record with the given fields.
func (c *Client) Create(ctx context.Context, table string, fields map[string]interface{}) (*Record, error) {
	var record Record
	body := map[string]interface{}{"fields": fields}
	if err := c.do(ctx, http.MethodPost, c.tableURL(table), body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update patches the given fields of an existing record. Fields not present in
// the map are left untouched.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]interface{}) (*Record, error) {
	var record Record
	body := map[string]interface{}{"fields": fields}
	endpoint := fmt.Sprintf("%s/%s", c.tableURL(table), url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, endpoint, body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Destroy deletes a record permanently.
func (c *Client) Destroy(ctx context.Context, table, id string) error {
	endpoint := fmt.Sprintf("%s/%s", c.tableURL(table), url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(table))
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("airtable request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrRecordNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("airtable request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("airtable request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

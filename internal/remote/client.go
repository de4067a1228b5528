package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aldenvall/inkpress/internal/apperr"
	"github.com/aldenvall/inkpress/internal/models"
)

// Client is the HTTP implementation of API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the backend at baseURL. token, when
// non-empty, is sent as a Bearer credential.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("remote: decode response: %w", err)
		}
	}
	return nil
}

// GenerateUploadURL requests a fresh upload destination from the backend.
func (c *Client) GenerateUploadURL(ctx context.Context) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/upload-url", nil, &res); err != nil {
		return "", err
	}
	if res.URL == "" {
		return "", errors.New("remote: backend returned empty upload url")
	}
	return res.URL, nil
}

// UploadPDF PUTs the PDF bytes to uploadURL and returns the storage ID the
// backend assigned.
func (c *Client) UploadPDF(ctx context.Context, uploadURL string, data []byte) (string, error) {
	target := uploadURL
	if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("remote: build upload: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("remote: upload: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var res struct {
		StorageID string `json:"storageId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("remote: decode upload response: %w", err)
	}
	if res.StorageID == "" {
		return "", errors.New("remote: backend returned empty storage id")
	}
	return res.StorageID, nil
}

// DeleteBlob removes a stored blob. Deleting an already-gone blob is fine.
func (c *Client) DeleteBlob(ctx context.Context, storageID string) error {
	err := c.do(ctx, http.MethodDelete, "/api/blobs/"+url.PathEscape(storageID), nil, nil)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

// GetEntry returns the record for slug, or nil when the backend has none.
func (c *Client) GetEntry(ctx context.Context, slug string) (*models.Record, error) {
	var rec models.Record
	err := c.do(ctx, http.MethodGet, "/api/entries/"+url.PathEscape(slug), nil, &rec)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertEntry inserts or patches the record keyed by rec.Slug.
func (c *Client) UpsertEntry(ctx context.Context, rec models.Record) (UpsertResult, error) {
	var res UpsertResult
	err := c.do(ctx, http.MethodPut, "/api/entries/"+url.PathEscape(rec.Slug), rec, &res)
	return res, err
}

// RemoveEntry deletes the record for slug.
func (c *Client) RemoveEntry(ctx context.Context, slug string) (RemoveResult, error) {
	var res RemoveResult
	err := c.do(ctx, http.MethodDelete, "/api/entries/"+url.PathEscape(slug), nil, &res)
	if errors.Is(err, apperr.ErrNotFound) {
		return RemoveResult{Action: models.ActionNotFound}, nil
	}
	return res, err
}

// ListEntries returns records in descending publish-date order.
func (c *Client) ListEntries(ctx context.Context, publishedOnly bool) ([]models.Record, error) {
	path := "/api/entries"
	if publishedOnly {
		path += "?published=true"
	}
	var res struct {
		Entries []models.Record `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// ListSlugs returns every slug the backend knows.
func (c *Client) ListSlugs(ctx context.Context) ([]string, error) {
	var res struct {
		Slugs []string `json:"slugs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/slugs", nil, &res); err != nil {
		return nil, err
	}
	return res.Slugs, nil
}

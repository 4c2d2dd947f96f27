// internal/remote/http.go
//
// HTTP implementation of the remote Store: a single JSON document
// fetched with GET and replaced with PUT, revisions carried in
// ETag / If-Match headers. Thin network glue only; dedup and retry
// policy live in the backlog.

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPStore talks to a remote document endpoint.
type HTTPStore struct {
	url    string
	token  string // opaque bearer credential, owned by the collaborator
	client *http.Client
}

// NewHTTPStore builds a transport for the given endpoint. token may be
// empty when the endpoint is unauthenticated.
func NewHTTPStore(url, token string) *HTTPStore {
	return &HTTPStore{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch GETs the score document. A 404 yields an empty document with an
// empty revision so the first Put creates the file.
func (h *HTTPStore) Fetch(ctx context.Context) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return Document{}, err
	}
	h.setHeaders(req)

	res, err := h.client.Do(req)
	if err != nil {
		return Document{}, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return Document{}, nil
	}
	if res.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("remote: fetch status %d", res.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("remote: decode document: %w", err)
	}
	doc.Rev = res.Header.Get("ETag")
	return doc, nil
}

// Put replaces the score document, presenting the fetched revision.
// A 409/412 response means another writer raced us: ErrConflict.
func (h *HTTPStore) Put(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, h.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	h.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if doc.Rev != "" {
		req.Header.Set("If-Match", doc.Rev)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusConflict, http.StatusPreconditionFailed:
		return ErrConflict
	default:
		return fmt.Errorf("remote: put status %d", res.StatusCode)
	}
}

func (h *HTTPStore) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

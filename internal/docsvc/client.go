// Package docsvc is the HTTP adapter for the external document-processing
// service that owns all binary PDF manipulation: structural autotagging and
// applying generated enrichment text into a document.
package docsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// Client calls the document-processing service. It satisfies
// services.DocumentService.
type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c}
}

type documentRequest struct {
	Document []byte `json:"document"`
}

type enrichmentRequest struct {
	Document   []byte            `json:"document"`
	Enrichment models.Enrichment `json:"enrichment"`
}

type documentResponse struct {
	Document []byte `json:"document"`
}

// Autotag runs the structural accessibility tagging pass over one chunk.
func (c *Client) Autotag(ctx context.Context, document []byte) ([]byte, error) {
	var out documentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(documentRequest{Document: document}).
		SetResult(&out).
		Post("/v1/autotag")
	return c.handle("autotag", resp, &out, err)
}

// ApplyEnrichment writes generated alt text, link text or a title into a
// document and returns the updated bytes.
func (c *Client) ApplyEnrichment(ctx context.Context, document []byte, enrichment models.Enrichment) ([]byte, error) {
	var out documentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(enrichmentRequest{Document: document, Enrichment: enrichment}).
		SetResult(&out).
		Post("/v1/enrich")
	return c.handle("enrich", resp, &out, err)
}

func (c *Client) handle(op string, resp *resty.Response, out *documentResponse, err error) ([]byte, error) {
	if err != nil {
		// Network level failures and client timeouts are retryable.
		return nil, models.NewError(models.KindTransientService, "docsvc", fmt.Errorf("%s request failed: %w", op, err))
	}
	switch {
	case resp.IsSuccess():
		if len(out.Document) == 0 {
			return nil, fmt.Errorf("docsvc: %s returned an empty document", op)
		}
		return out.Document, nil
	case resp.StatusCode() == 429 || resp.StatusCode() >= 500:
		return nil, models.NewError(models.KindTransientService, "docsvc",
			fmt.Errorf("%s returned status %d", op, resp.StatusCode()))
	default:
		return nil, fmt.Errorf("docsvc: %s returned status %d: %s", op, resp.StatusCode(), resp.String())
	}
}

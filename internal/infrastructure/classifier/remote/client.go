// Package remote implements the transport boundary to the document
// classification service: multipart batch upload, keyed delete and the
// two download streams.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
	"github.com/Meirbek-dev/tou-intake/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client for the classification service. executor may be
// nil, in which case calls go out unguarded.
func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

// manifestEntry is the wire shape of one processed file. Pointers keep
// the decode strict: a manifest missing original_name or category fails
// the whole batch instead of sneaking a half-formed record in.
type manifestEntry struct {
	OriginalName *string `json:"original_name"`
	NewName      *string `json:"new_name"`
	Category     *string `json:"category"`
}

// Upload sends one multipart batch (repeated "files" parts plus the
// applicant name fields) and decodes the renamed-file manifest.
func (c *Client) Upload(ctx context.Context, firstName, lastName string, batch []domain.FileUpload) ([]domain.ClassifiedFile, error) {
	var manifest []domain.ClassifiedFile
	call := func(ctx context.Context) error {
		files, err := c.postUpload(ctx, firstName, lastName, batch)
		if err != nil {
			return err
		}
		manifest = files
		return nil
	}

	if err := c.execute(ctx, "classifier.upload", call); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (c *Client) postUpload(ctx context.Context, firstName, lastName string, batch []domain.FileUpload) ([]domain.ClassifiedFile, error) {
	body, contentType, err := encodeUploadForm(firstName, lastName, batch)
	if err != nil {
		return nil, fmt.Errorf("encode upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPStatusError("upload", resp)
	}

	var entries []manifestEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode upload manifest: %w", err)
	}
	return decodeManifest(entries)
}

func decodeManifest(entries []manifestEntry) ([]domain.ClassifiedFile, error) {
	manifest := make([]domain.ClassifiedFile, 0, len(entries))
	for i, e := range entries {
		if e.OriginalName == nil || *e.OriginalName == "" {
			return nil, fmt.Errorf("manifest entry %d missing original_name", i)
		}
		if e.Category == nil {
			return nil, fmt.Errorf("manifest entry %d missing category", i)
		}
		storedName := ""
		if e.NewName != nil {
			storedName = *e.NewName
		}
		manifest = append(manifest, domain.ClassifiedFile{
			OriginalName: *e.OriginalName,
			StoredName:   storedName,
			Category:     *e.Category,
		})
	}
	return manifest, nil
}

// Delete removes one stored file. Anything but 200 keeps the record
// alive on the caller's side.
func (c *Client) Delete(ctx context.Context, storedName string) error {
	call := func(ctx context.Context) error {
		endpoint := c.baseURL + "/delete_file?filename=" + url.QueryEscape(storedName)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create delete request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("classifier delete request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return newHTTPStatusError("delete", resp)
		}
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return c.execute(ctx, "classifier.delete", call)
}

// FetchFile streams one stored file. The caller owns the reader. Fetch
// operations bypass the breaker: they are pass-through downloads and a
// failed one must not block intake traffic.
func (c *Client) FetchFile(ctx context.Context, storedName string) (io.ReadCloser, string, error) {
	return c.fetch(ctx, "fetch_file", c.baseURL+"/files/"+url.PathEscape(storedName))
}

// FetchArchive streams the zip of every stored file for the applicant.
func (c *Client) FetchArchive(ctx context.Context, firstName, lastName string) (io.ReadCloser, string, error) {
	query := url.Values{}
	query.Set("name", firstName)
	query.Set("lastname", lastName)
	return c.fetch(ctx, "fetch_archive", c.baseURL+"/download_zip?"+query.Encode())
}

func (c *Client) fetch(ctx context.Context, operation, endpoint string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("classifier %s request: %w", operation, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", newHTTPStatusError(operation, resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor == nil {
		return call(ctx)
	}
	err := c.executor.Execute(ctx, operation, call, classifyRemoteError)
	return wrapTemporaryIfNeeded(operation, err)
}

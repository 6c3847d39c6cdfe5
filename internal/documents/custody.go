// Package documents stores prospect documents with the external custody
// service and produces signed credit-authorization artifacts.
package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/metrics"
	"qualification-workers/internal/models"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

var (
	ErrCustodyUnauthorized = errors.New("CUSTODY_UNAUTHORIZED")
	ErrStoreFailed         = errors.New("DOCUMENT_STORE_FAILED")
	ErrRejected            = errors.New("DOCUMENT_REJECTED")
)

// Custody stores a file under the tenant/prospect folder and returns a reference.
type Custody interface {
	Store(ctx context.Context, tenantID, prospectID string, f models.File) (models.ArtifactRef, error)
}

type CustodyClient struct {
	http   *resty.Client
	tokens TokenSource
	logger logger.Logger
	now    func() time.Time
}

func NewCustodyClient(httpClient *resty.Client, tokens TokenSource, log logger.Logger) *CustodyClient {
	return &CustodyClient{
		http:   httpClient,
		tokens: tokens,
		logger: log.WithFields(map[string]interface{}{"component": "custody-client"}),
		now:    time.Now,
	}
}

type uploadResponse struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

const uploadPath = "/v1/folders/{tenant}/{prospect}/files/{file}"

// Store uploads f. An authorization rejection triggers one token refresh and
// one retry; a second rejection is ErrCustodyUnauthorized.
func (c *CustodyClient) Store(ctx context.Context, tenantID, prospectID string, f models.File) (models.ArtifactRef, error) {
	if !f.Slot.Valid() {
		return models.ArtifactRef{}, fmt.Errorf("%w: unknown slot %q", ErrRejected, f.Slot)
	}
	if len(f.Content) == 0 {
		return models.ArtifactRef{}, fmt.Errorf("%w: empty file", ErrRejected)
	}

	fileName := fmt.Sprintf("%s-%s", f.Slot, sanitizeName(f.Name))

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return models.ArtifactRef{}, c.tokenError(f.Slot, err)
	}

	resp, err := c.upload(ctx, token, tenantID, prospectID, fileName, f)
	if err != nil {
		metrics.CustodyUploads.WithLabelValues(string(f.Slot), "transport_error").Inc()
		return models.ArtifactRef{}, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	if isAuthFailure(resp.StatusCode()) {
		c.logger.Info("custody rejected token, refreshing", map[string]interface{}{
			"status":     resp.StatusCode(),
			"tenantId":   tenantID,
			"prospectId": prospectID,
		})
		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return models.ArtifactRef{}, c.tokenError(f.Slot, err)
		}
		resp, err = c.upload(ctx, token, tenantID, prospectID, fileName, f)
		if err != nil {
			metrics.CustodyUploads.WithLabelValues(string(f.Slot), "transport_error").Inc()
			return models.ArtifactRef{}, fmt.Errorf("%w: %v", ErrStoreFailed, err)
		}
		if isAuthFailure(resp.StatusCode()) {
			metrics.CustodyUploads.WithLabelValues(string(f.Slot), "unauthorized").Inc()
			return models.ArtifactRef{}, fmt.Errorf("%w: status %d after token refresh", ErrCustodyUnauthorized, resp.StatusCode())
		}
	}

	switch status := resp.StatusCode(); {
	case status >= 500:
		metrics.CustodyUploads.WithLabelValues(string(f.Slot), "server_error").Inc()
		return models.ArtifactRef{}, fmt.Errorf("%w: status %d", ErrStoreFailed, status)
	case status >= 400:
		metrics.CustodyUploads.WithLabelValues(string(f.Slot), "rejected").Inc()
		return models.ArtifactRef{}, fmt.Errorf("%w: status %d", ErrRejected, status)
	}

	out := resp.Result().(*uploadResponse)
	location := out.Location
	if location == "" {
		location = path.Join("/v1/folders", tenantID, prospectID, "files", fileName)
	}
	size := out.Size
	if size == 0 {
		size = int64(len(f.Content))
	}

	metrics.CustodyUploads.WithLabelValues(string(f.Slot), "stored").Inc()
	return models.ArtifactRef{
		Slot:        f.Slot,
		Location:    location,
		FileName:    fileName,
		ContentType: f.ContentType,
		Size:        size,
		StoredAt:    c.now().UTC(),
	}, nil
}

func (c *CustodyClient) upload(ctx context.Context, token, tenantID, prospectID, fileName string, f models.File) (*resty.Response, error) {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", contentType).
		SetPathParams(map[string]string{
			"tenant":   tenantID,
			"prospect": prospectID,
			"file":     fileName,
		}).
		SetBody(f.Content).
		SetResult(&uploadResponse{}).
		Put(uploadPath)
}

func (c *CustodyClient) tokenError(slot models.DocumentSlot, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
		metrics.CustodyUploads.WithLabelValues(string(slot), "unauthorized").Inc()
		return fmt.Errorf("%w: %v", ErrCustodyUnauthorized, err)
	}
	metrics.CustodyUploads.WithLabelValues(string(slot), "token_error").Inc()
	return fmt.Errorf("%w: %v", ErrStoreFailed, err)
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

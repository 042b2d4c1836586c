package analysis

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/upload"
)

// BackendSubmitter asks the backend to run the analysis. The backend owns
// the provider credentials in this mode.
type BackendSubmitter struct {
	api gateway.Doer
}

var (
	_ Submitter = (*BackendSubmitter)(nil)
	_ Fetcher   = (*BackendSubmitter)(nil)
)

// NewBackendSubmitter builds a submitter over api.
func NewBackendSubmitter(api gateway.Doer) *BackendSubmitter {
	return &BackendSubmitter{api: api}
}

type startRequest struct {
	VideoID string `json:"video_id"`
	Mode    string `json:"mode"`
}

// Submit calls POST /analysis/start.
func (b *BackendSubmitter) Submit(ctx context.Context, ref upload.MediaReference, mode Mode) (any, error) {
	if strings.TrimSpace(ref.ID) == "" {
		return nil, gateway.Validation("media has not been uploaded")
	}
	var raw any
	req := gateway.Request{
		Method: http.MethodPost,
		Path:   "/analysis/start",
		JSON:   startRequest{VideoID: ref.ID, Mode: mode.String()},
	}
	if err := b.api.Do(ctx, req, &raw); err != nil {
		return nil, fmt.Errorf("start analysis: %w", err)
	}
	return raw, nil
}

// Fetch calls GET /analysis/{id}.
func (b *BackendSubmitter) Fetch(ctx context.Context, id string) (any, error) {
	var raw any
	if err := b.api.Do(ctx, gateway.Request{Path: "/analysis/" + url.PathEscape(id)}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

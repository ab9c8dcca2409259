package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// Directory is the external profile service boundary. The messaging core
// only reads snapshots: nicknames for push titles, device tokens for
// delivery.
type Directory interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.Profile, error)
}

// HTTPDirectory talks to the profile service's internal REST API.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	log     *zap.SugaredLogger
}

func NewHTTPDirectory(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (d *HTTPDirectory) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	return d.get(ctx, "/internal/profiles/"+url.PathEscape(id))
}

func (d *HTTPDirectory) FindByAccountID(ctx context.Context, accountID string) (*models.Profile, error) {
	return d.get(ctx, "/internal/profiles/by-account/"+url.PathEscape(accountID))
}

func (d *HTTPDirectory) get(ctx context.Context, path string) (*models.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrProfileNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("profile directory status=%d", resp.StatusCode)
	}

	var p models.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

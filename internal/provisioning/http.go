package provisioning

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/halonet/billing-engine/internal/config"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/logger"
)

// HTTPService calls the provisioning collaborator's REST API
type HTTPService struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
	logger  *logger.Logger
}

// NewHTTPService creates a provisioning client from configuration
func NewHTTPService(cfg config.ProvisioningConfig, log *logger.Logger) *HTTPService {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = cfg.Timeout
	if client.HTTPClient.Timeout <= 0 {
		client.HTTPClient.Timeout = 15 * time.Second
	}
	client.Logger = nil

	return &HTTPService{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  log,
	}
}

func (s *HTTPService) ActivateClient(ctx context.Context, clientID string) error {
	return s.post(ctx, clientID, "activate")
}

func (s *HTTPService) SuspendClient(ctx context.Context, clientID string) error {
	return s.post(ctx, clientID, "suspend")
}

func (s *HTTPService) EnableMonitoring(ctx context.Context, clientID string) error {
	return s.post(ctx, clientID, "monitoring/enable")
}

func (s *HTTPService) DisableMonitoring(ctx context.Context, clientID string) error {
	return s.post(ctx, clientID, "monitoring/disable")
}

func (s *HTTPService) post(ctx context.Context, clientID, action string) error {
	endpoint := fmt.Sprintf("%s/v1/clients/%s/%s", s.baseURL, clientID, action)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to build provisioning request").
			Mark(ierr.ErrHTTPClient)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Provisioning call failed").
			WithReportableDetails(map[string]interface{}{
				"client_id": clientID,
				"action":    action,
			}).
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return ierr.NewErrorf("provisioning returned status %d", resp.StatusCode).
			WithReportableDetails(map[string]interface{}{
				"client_id": clientID,
				"action":    action,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	s.logger.Debugw("provisioning action applied",
		"client_id", clientID,
		"action", action)
	return nil
}

package rcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mikkqu/rc-auth/internal/services/oauth"
)

const requestTimeout = 15 * time.Second

// DownstreamError reports a non-2xx response from the profile API. Callers
// inspect Status to decide whether the local session must be invalidated.
type DownstreamError struct {
	Status int
	Body   string
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("profile API returned status %d: %s", e.Status, e.Body)
}

// Service calls the downstream profile API with a caller-supplied access
// token. Response bodies pass through verbatim.
type Service struct {
	client  *http.Client
	baseURL string
}

func NewService(baseURL string) *Service {
	return &Service{
		client:  &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GetProfile fetches the authenticated user's own profile.
func (s *Service) GetProfile(ctx context.Context, accessToken string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/profiles/me", s.baseURL)

	log.Debug().Str("token_prefix", oauth.TokenPrefix(accessToken)).Msg("Fetching profile data")

	return s.get(ctx, url, accessToken)
}

// GetBatchProfiles fetches profiles belonging to a batch. The limit is
// forwarded verbatim; validation happens at the handler boundary.
func (s *Service) GetBatchProfiles(ctx context.Context, batchID, limit int, accessToken string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/profiles?batch_id=%d&limit=%d", s.baseURL, batchID, limit)

	log.Debug().Int("batch_id", batchID).Int("limit", limit).Msg("Fetching batch profiles")

	return s.get(ctx, url, accessToken)
}

func (s *Service) get(ctx context.Context, url, accessToken string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Profile API request failed")
		return nil, fmt.Errorf("profile API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Error().Int("status", resp.StatusCode).Str("url", url).Msg("Profile API returned error response")
		return nil, &DownstreamError{
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}

	return json.RawMessage(body), nil
}

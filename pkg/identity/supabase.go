package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/pkg/config"
)

// Invite is the result of provisioning an external auth identity.
type Invite struct {
	ExternalID string `json:"externalId"`
	Email      string `json:"email"`
	Invited    bool   `json:"invited"`
}

// Provider mints auth-provider identities for invited users.
type Provider interface {
	CreateUserInvite(ctx context.Context, email string) (*Invite, error)
}

// SupabaseProvider talks to the Supabase admin API. In mock mode it returns
// synthetic identities, which mirrors how the reference deployment runs
// everywhere except production.
type SupabaseProvider struct {
	baseURL    string
	serviceKey string
	mock       bool
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSupabase builds a provider from configuration.
func NewSupabase(cfg config.IdentityConfig, logger *zap.Logger) *SupabaseProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupabaseProvider{
		baseURL:    cfg.SupabaseURL,
		serviceKey: cfg.ServiceRoleKey,
		mock:       cfg.Mock || cfg.SupabaseURL == "",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// CreateUserInvite asks the auth provider to invite the email address.
func (p *SupabaseProvider) CreateUserInvite(ctx context.Context, email string) (*Invite, error) {
	if p.mock {
		p.logger.Sugar().Debugw("mock identity invite", "email", email)
		return &Invite{ExternalID: "mock_" + uuid.NewString(), Email: email, Invited: true}, nil
	}

	payload, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return nil, fmt.Errorf("marshal invite payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/v1/invite", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build invite request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invite request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("invite request failed with status %d", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode invite response: %w", err)
	}

	return &Invite{ExternalID: body.ID, Email: email, Invited: true}, nil
}

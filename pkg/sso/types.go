package sso

import (
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/cove/pkg/apperr"
)

// Config is an organization's OIDC client configuration.
type Config struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Issuer       string    `json:"issuer"`
	ClientID     string    `json:"client_id"`
	Active       bool      `json:"active"`
	CreationTime time.Time `json:"creation_time"`
}

// ConfigUpdate is the client-supplied part of a configuration.
type ConfigUpdate struct {
	Issuer   string `json:"issuer"`
	ClientID string `json:"client_id"`
	Active   bool   `json:"active"`
}

// Validate checks the update for well-formedness.
func (u ConfigUpdate) Validate() error {
	issuer := strings.TrimSpace(u.Issuer)
	if issuer == "" {
		return apperr.BadRequest("issuer cannot be empty")
	}
	parsed, err := url.Parse(issuer)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return apperr.BadRequest("issuer must be an absolute URL")
	}
	if parsed.Scheme != "https" {
		return apperr.BadRequest("issuer must use https")
	}
	if strings.TrimSpace(u.ClientID) == "" {
		return apperr.BadRequest("client ID cannot be empty")
	}
	return nil
}

package api

import (
	"crypto/subtle"
	"errors"
	"strings"

	"wardrobe/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permRentalsRead  = "read:rentals"
	permRentalsWrite = "write:rentals"
	permDesk         = "desk"
)

var (
	errMissingAPIKey    = errors.New("missing api key headers")
	errInvalidAPIKey    = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
)

// clientGate checks the API client keys that front both transports. The
// end user behind a client is identified separately by a bearer token.
type clientGate struct {
	enabled      bool
	apiKeyHeader string
	extraHeader  string
	clients      map[string]config.APIClientKey
}

func newClientGate(cfg config.APIAuthConfig) *clientGate {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}

	apiKeyHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = apiKeyHeaderDefault
	}
	extraHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderExtra))
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	return &clientGate{
		enabled:      cfg.Enabled,
		apiKeyHeader: apiKeyHeader,
		extraHeader:  extraHeader,
		clients:      m,
	}
}

func (g *clientGate) check(apiKey, extra, required string) error {
	apiKey, extra = strings.TrimSpace(apiKey), strings.TrimSpace(extra)
	if apiKey == "" || extra == "" {
		return errMissingAPIKey
	}

	client, ok := g.clients[apiKey]
	if !ok {
		return errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidExtra
	}
	if !hasPermission(client, required) {
		return errPermissionDenied
	}
	return nil
}

// hasPermission treats an empty permission list as allow-all.
func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

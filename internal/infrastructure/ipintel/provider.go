// Package ipintel is the client for the external Fraud Signal Provider: IP
// geolocation and VPN/proxy/Tor/datacenter detection, cached per address.
package ipintel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"offertrack/internal/domain/fraud"
)

// UnknownCountry is stored when the provider cannot resolve an address.
const UnknownCountry = "Unknown"

// HTTPProvider queries a JSON lookup endpoint of the form {base_url}/{ip}.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider with a bounded request timeout.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
	IsVPN        bool   `json:"is_vpn"`
	IsProxy      bool   `json:"is_proxy"`
	IsTor        bool   `json:"is_tor"`
	IsDatacenter bool   `json:"is_datacenter"`
	IsHosting    bool   `json:"is_hosting"`
}

// Lookup fetches signals for one address. Errors are returned to the caller,
// which is expected to degrade to a clean/unknown signal rather than fail.
func (p *HTTPProvider) Lookup(ctx context.Context, ip string) (fraud.IPSignals, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", p.baseURL, ip), nil)
	if err != nil {
		return fraud.IPSignals{}, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fraud.IPSignals{}, fmt.Errorf("signal provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fraud.IPSignals{}, fmt.Errorf("signal provider returned %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fraud.IPSignals{}, fmt.Errorf("decode signal response: %w", err)
	}

	country := body.Country
	if country == "" {
		country = body.CountryCode
	}
	if country == "" {
		country = UnknownCountry
	}

	return fraud.IPSignals{
		IsVPN:        body.IsVPN,
		IsProxy:      body.IsProxy,
		IsTor:        body.IsTor,
		IsDatacenter: body.IsDatacenter,
		IsHosting:    body.IsHosting,
		Country:      country,
	}, nil
}

package netprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const DefaultURL = "https://api.ipify.org?format=json"

// IPProbe resolves the service's public IP through a "what is my IP" endpoint
type IPProbe struct {
	url        string
	httpClient *http.Client
}

// NewIPProbe creates a probe against url (an ipify-compatible JSON endpoint)
func NewIPProbe(url string, timeout time.Duration) *IPProbe {
	if url == "" {
		url = DefaultURL
	}
	return &IPProbe{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PublicIP returns the outbound IP address
func (p *IPProbe) PublicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip probe returned HTTP %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode ip probe response: %w", err)
	}
	if body.IP == "" {
		return "", errors.New("ip probe returned no address")
	}
	return body.IP, nil
}

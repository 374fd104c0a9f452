package hub

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultRequestTimeout bounds a single REST request to the hub.
const defaultRequestTimeout = 15 * time.Second

// Client is a REST client for the Jung Home hub's local HTTP API.
//
// The hub serves HTTPS with a self-signed certificate, so certificate
// verification is disabled. Authentication uses a static token sent in
// the `token` header.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	host  string
	token string
	http  *http.Client
}

// NewClient creates a REST client for the given hub.
//
// Parameters:
//   - host: The hub's address (IP or hostname, no scheme)
//   - token: The static API token issued by the hub
//
// Returns:
//   - *Client: Client ready for use
func NewClient(host, token string) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			// The hub presents a self-signed certificate on the local
			// network; there is no CA to verify against.
			InsecureSkipVerify: true, // #nosec G402
		},
	}

	return &Client{
		host:  host,
		token: token,
		http: &http.Client{
			Transport: transport,
			Timeout:   defaultRequestTimeout,
		},
	}
}

// FetchDevices retrieves the full device tree from the hub.
//
// It issues GET https://{host}/api/junghome/functions and decodes the
// response into an ordered device slice. A JSON `null` body yields an
// empty result with no error. Unknown fields in the response are dropped.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - []Device: Devices in hub order (nil when the hub reports none)
//   - error: Wrapped ErrNetwork on transport failure, non-2xx status,
//     or a malformed response body
func (c *Client) FetchDevices(ctx context.Context) ([]Device, error) {
	url := fmt.Sprintf("https://%s/api/junghome/functions", c.host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrNetwork, err)
	}
	req.Header.Set("token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrNetwork, err)
	}

	// The hub returns `null` when no devices are configured.
	var devices []Device
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrNetwork, err)
	}

	return devices, nil
}

// Package amadeus provides a client for the Amadeus flight-offers API,
// including OAuth2 client-credentials token acquisition and caching.
package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable signals that no price could be obtained for a route. The
// monitoring cycle treats it as "skip this route for this cycle".
var ErrUnavailable = errors.New("no flight offer available")

// tokenExpirySlack is subtracted from the advertised token lifetime so a
// token is refreshed before it can expire mid-request.
const tokenExpirySlack = 60 * time.Second

// ClientConfig holds retry and search parameters for the Amadeus client.
type ClientConfig struct {
	MaxRetries          int
	RetryDelayBase      time.Duration
	DepartureOffsetDays int
	CurrencyCode        string
}

// Client provides access to the Amadeus API.
type Client struct {
	apiURL     string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	config     ClientConfig

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new Amadeus client.
func NewClient(apiURL, apiKey, apiSecret string, timeout time.Duration, config ClientConfig) *Client {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelayBase <= 0 {
		config.RetryDelayBase = time.Second
	}
	if config.DepartureOffsetDays <= 0 {
		config.DepartureOffsetDays = 30
	}
	if config.CurrencyCode == "" {
		config.CurrencyCode = "BRL"
	}
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: timeout},
		config:     config,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached OAuth token, fetching a fresh one when the
// cached token is absent or within the expiry slack.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.apiKey)
	form.Set("client_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed: %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}

	c.token = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpirySlack)
	return c.token, nil
}

type offersResponse struct {
	Data []struct {
		Price struct {
			Total string `json:"total"`
		} `json:"price"`
	} `json:"data"`
}

// FetchPrice returns the cheapest one-adult one-way offer total for the pair,
// departing DepartureOffsetDays from now. Returns ErrUnavailable when the API
// reports no offers.
func (c *Client) FetchPrice(ctx context.Context, origin, destination string) (float64, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to authenticate: %w", err)
	}

	departure := time.Now().AddDate(0, 0, c.config.DepartureOffsetDays).Format("2006-01-02")

	u, err := url.Parse(c.apiURL + "/v2/shopping/flight-offers")
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("originLocationCode", origin)
	q.Set("destinationLocationCode", destination)
	q.Set("departureDate", departure)
	q.Set("adults", "1")
	q.Set("currencyCode", c.config.CurrencyCode)
	q.Set("max", "1")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String(), token)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch offers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("offers request failed: %d", resp.StatusCode)
	}

	var or offersResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return 0, fmt.Errorf("failed to decode offers: %w", err)
	}
	if len(or.Data) == 0 {
		return 0, ErrUnavailable
	}

	price, err := strconv.ParseFloat(or.Data[0].Price.Total, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse offer total %q: %w", or.Data[0].Price.Total, err)
	}
	if price <= 0 {
		return 0, ErrUnavailable
	}
	return price, nil
}

// doRequest performs a GET with linear-backoff retry on transport errors and
// server-side failures.
func (c *Client) doRequest(ctx context.Context, urlStr, token string) (*http.Response, error) {
	var lastErr error
	for i := 0; i < c.config.MaxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.config.RetryDelayBase * time.Duration(i+1))
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.config.RetryDelayBase * time.Duration(i+1))
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

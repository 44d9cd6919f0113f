// Package google is a client for the Google Places API (New): text search and
// place details, restricted to the fields needed to read a listing's address
// and phone.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/phonematch-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

const (
	searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.shortFormattedAddress,places.nationalPhoneNumber"
	detailFieldMask = "id,displayName,formattedAddress,shortFormattedAddress,nationalPhoneNumber,internationalPhoneNumber"
)

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, query string) (*TextSearchResponse, error)
	GetPlace(ctx context.Context, placeID string) (*Place, error)
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID                       string      `json:"id"`
	DisplayName              DisplayName `json:"displayName"`
	FormattedAddress         string      `json:"formattedAddress"`
	ShortFormattedAddress    string      `json:"shortFormattedAddress,omitempty"`
	NationalPhoneNumber      string      `json:"nationalPhoneNumber,omitempty"`
	InternationalPhoneNumber string      `json:"internationalPhoneNumber,omitempty"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

// WithLanguage sets the languageCode and regionCode sent with every request.
func WithLanguage(language, region string) Option {
	return func(c *httpClient) {
		c.language = language
		c.region = region
	}
}

// WithMaxResults caps the number of places a text search returns.
func WithMaxResults(n int) Option {
	return func(c *httpClient) {
		c.maxResults = n
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	retry      resilience.Policy
	language   string
	region     string
	maxResults int
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultPolicy(),
		language:   "ko",
		region:     "KR",
		maxResults: 5,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery    string `json:"textQuery"`
	LanguageCode string `json:"languageCode,omitempty"`
	RegionCode   string `json:"regionCode,omitempty"`
	PageSize     int    `json:"pageSize,omitempty"`
}

func (c *httpClient) TextSearch(ctx context.Context, query string) (*TextSearchResponse, error) {
	body, err := json.Marshal(textSearchRequest{
		TextQuery:    query,
		LanguageCode: c.language,
		RegionCode:   c.region,
		PageSize:     c.maxResults,
	})
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	var result TextSearchResponse
	err = c.do(ctx, "google: text search", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-FieldMask", searchFieldMask)
		return req, nil
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) GetPlace(ctx context.Context, placeID string) (*Place, error) {
	if placeID == "" {
		return nil, eris.New("google: empty place id")
	}

	q := url.Values{}
	if c.language != "" {
		q.Set("languageCode", c.language)
	}
	if c.region != "" {
		q.Set("regionCode", c.region)
	}
	endpoint := c.baseURL + "/places/" + url.PathEscape(placeID)
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var place Place
	err := c.do(ctx, "google: place details", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-FieldMask", detailFieldMask)
		return req, nil
	}, &place)
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// do sends the request built by newReq, retrying transient failures, and
// decodes a 200 response into out.
func (c *httpClient) do(ctx context.Context, op string, newReq func(context.Context) (*http.Request, error), out any) error {
	respBody, err := resilience.Call(ctx, c.retry, op, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "google: rate limit wait")
		}
		req, err := newReq(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "google: create request")
		}
		req.Header.Set("X-Goog-Api-Key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "google: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckStatus("google", resp); err != nil {
			return nil, err
		}
		b, err := io.ReadAll(resp.Body)
		return b, eris.Wrap(err, "google: read response")
	})
	if err != nil {
		return eris.Wrap(err, op)
	}

	return eris.Wrap(json.Unmarshal(respBody, out), "google: unmarshal response")
}

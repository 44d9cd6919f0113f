// Package naver is a client for the Naver Local Search API, which returns up
// to five business listings per query with their lot (jibun) address, road
// address, and phone.
package naver

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/phonematch-cli/internal/resilience"
)

const defaultBaseURL = "https://openapi.naver.com/v1/search"

// MaxDisplay is the most items the local search endpoint returns per call.
const MaxDisplay = 5

// Client performs Naver Local Search operations.
type Client interface {
	SearchLocal(ctx context.Context, query string, display int) (*LocalResponse, error)
}

// LocalResponse is the local search response.
type LocalResponse struct {
	LastBuildDate string `json:"lastBuildDate"`
	Total         int    `json:"total"`
	Start         int    `json:"start"`
	Display       int    `json:"display"`
	Items         []Item `json:"items"`
}

// Item is one business listing.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Telephone   string `json:"telephone"`
	Address     string `json:"address"`     // lot (jibun) address
	RoadAddress string `json:"roadAddress"` // road-name address
	MapX        string `json:"mapx"`
	MapY        string `json:"mapy"`
}

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "")

// Name returns the title without the <b> highlight markup and with entities
// decoded.
func (i Item) Name() string {
	return strings.TrimSpace(html.UnescapeString(tagStripper.Replace(i.Title)))
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

// WithRateLimit caps requests per second. The search API allows 10.
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

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
	retry        resilience.Policy
}

// NewClient creates a Naver search API client.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(5, 5),
		retry:   resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchLocal(ctx context.Context, query string, display int) (*LocalResponse, error) {
	if display <= 0 || display > MaxDisplay {
		display = MaxDisplay
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("display", strconv.Itoa(display))
	q.Set("start", "1")
	q.Set("sort", "random")
	endpoint := c.baseURL + "/local.json?" + q.Encode()

	body, err := resilience.Call(ctx, c.retry, "naver: local search", func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "naver: rate limit wait")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, eris.Wrap(err, "naver: create request")
		}
		req.Header.Set("X-Naver-Client-Id", c.clientID)
		req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "naver: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckStatus("naver", resp); err != nil {
			return nil, err
		}
		b, err := io.ReadAll(resp.Body)
		return b, eris.Wrap(err, "naver: read response")
	})
	if err != nil {
		return nil, eris.Wrapf(err, "naver: local search %q", query)
	}

	var result LocalResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "naver: unmarshal response")
	}
	return &result, nil
}

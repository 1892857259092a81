// Package codeforces is a thin client for the read-only Codeforces API.
// Every call waits on a shared rate limiter before going out; retry policy is
// left to callers.
package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://codeforces.com/api"

// LookupError is returned when the API answers with status != "OK", typically
// for unknown or deleted handles. It carries the provider's comment verbatim.
type LookupError struct {
	Handle  string
	Comment string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("codeforces lookup failed for %q: %s", e.Handle, e.Comment)
}

type UserInfo struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
}

type RatingChange struct {
	ContestID               int64  `json:"contestId"`
	ContestName             string `json:"contestName"`
	Rank                    int    `json:"rank"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
}

type Problem struct {
	ContestID int64  `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
}

type Submission struct {
	ID                  int64   `json:"id"`
	ContestID           int64   `json:"contestId"`
	Problem             Problem `json:"problem"`
	Verdict             string  `json:"verdict"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	ProgrammingLanguage string  `json:"programmingLanguage"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client that spaces outbound calls at least interval
// apart, per the provider's fair-use limits.
func NewClient(baseURL string, interval time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (c *Client) UserInfo(ctx context.Context, handle string) (*UserInfo, error) {
	var result []UserInfo
	params := url.Values{"handles": {handle}}
	if err := c.get(ctx, "/user.info", params, handle, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &LookupError{Handle: handle, Comment: "empty user.info result"}
	}
	return &result[0], nil
}

func (c *Client) RatingHistory(ctx context.Context, handle string) ([]RatingChange, error) {
	var result []RatingChange
	params := url.Values{"handle": {handle}}
	if err := c.get(ctx, "/user.rating", params, handle, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) RecentSubmissions(ctx context.Context, handle string, count int) ([]Submission, error) {
	var result []Submission
	params := url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {fmt.Sprintf("%d", count)},
	}
	if err := c.get(ctx, "/user.status", params, handle, &result); err != nil {
		return nil, err
	}
	return result, nil
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, handle string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	if envelope.Status != "OK" {
		comment := envelope.Comment
		if comment == "" {
			comment = fmt.Sprintf("unexpected status %q (HTTP %d)", envelope.Status, resp.StatusCode)
		}
		return &LookupError{Handle: handle, Comment: comment}
	}

	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", endpoint, err)
	}
	return nil
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"killstats/internal/config"
	"killstats/internal/constants"
	"killstats/internal/domain"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedPayload is returned when a 2xx response does not have the
// shape the dashboard expects.
var ErrMalformedPayload = errors.New("malformed payload")

// APIError is a non-2xx answer from the killstats backend.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d", e.StatusCode)
}

type KillstatsClient struct {
	baseURL string
	client  *fasthttp.Client
}

func NewKillstatsClient(cfg *config.Config) *KillstatsClient {
	return &KillstatsClient{
		baseURL: cfg.APIBaseURL,
		client: &fasthttp.Client{
			Name:                "killstats-dashboard",
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Get performs a GET against path (as produced by the resources package)
// and returns the body of a 2xx response. Other statuses yield *APIError
// carrying the raw body.
func (c *KillstatsClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	status, body, err := c.do(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &APIError{StatusCode: status, Body: body}
	}
	return body, nil
}

// GetPartial fetches an HTML partial. Unlike Get, any HTTP status is
// returned to the caller together with the body.
func (c *KillstatsClient) GetPartial(ctx context.Context, path string) (int, []byte, error) {
	return c.do(ctx, path, nil)
}

func (c *KillstatsClient) GetStats(ctx context.Context, path string) (domain.Stats, error) {
	return doRequest(ctx, c, path, nil, DecodeStats)
}

func (c *KillstatsClient) GetHalls(ctx context.Context, path string) (*domain.Halls, error) {
	return doRequest(ctx, c, path, nil, DecodeHalls)
}

func (c *KillstatsClient) GetKillmails(ctx context.Context, path string, q domain.TableQuery) (*domain.KillmailPage, error) {
	return doRequest(ctx, c, path, tableValues(q), DecodeKillmailPage)
}

func doRequest[T any](ctx context.Context, client *KillstatsClient, path string, query url.Values, decode func([]byte) (T, error)) (T, error) {
	var zero T
	body, err := client.Get(ctx, path, query)
	if err != nil {
		return zero, err
	}
	return decode(body)
}

func (c *KillstatsClient) do(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json, text/html")

	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.ExternalAPITimeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, fmt.Errorf("request %s: %w", path, err)
	}

	// resp is released on return, so the body must be copied out.
	body := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), body, nil
}

package stepn

import (
	"context"
	"encoding/json"
	"fmt"
	"marketwatch/internal/components/assert"
	"marketwatch/internal/components/journal"
	"marketwatch/internal/components/telemetry"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://api.stepn.com/run"
	DefaultMinDelay = time.Second
	DefaultTimeout  = 30 * time.Second
)

const detailCacheSize = 1024

const (
	report_client_request = "client.request"
	report_client_decode  = "client.decode"
	report_client_outcome = "client.outcome"
)

var tracer = otel.Tracer("internal/stepn")

type Options struct {
	// BaseURL is the url endpoints are appended to, defaults to DefaultBaseURL.
	BaseURL string
	// MinDelay is the minimum spacing between any two requests, <= 0 disables it.
	MinDelay time.Duration
	// Timeout of a single request, defaults to DefaultTimeout.
	Timeout time.Duration
	// DetailCacheTTL is how long successful orderdata responses are reused, 0 disables the cache.
	DetailCacheTTL   time.Duration
	CloudflareBypass bool
	// Journal receives the full url of every outbound request, defaults to journal.Nop.
	Journal journal.Journal
}

// Client is a rate limited client of the STEPN web api. It holds no session
// state, every authenticated call takes the session id explicitly.
type Client struct {
	http    *resty.Client
	baseURL string
	tel     telemetry.API
	details *expirable.LRU[int64, ListingDetail]
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("stepn_client", tel)

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}

	httpClient := resty.New()
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("accept", "application/json")
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	limit := rate.Inf
	if opts.MinDelay > 0 {
		limit = rate.Every(opts.MinDelay)
	}
	rateLimiter := rate.NewLimiter(limit, 1)
	// the first request waits like every other one
	rateLimiter.Allow()
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})
	requestLog := opts.Journal
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		requestLog.Request(req.URL)
		return nil
	})
	telemetry.InstrumentResty(httpClient, tel)

	c := &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		tel:     tel,
	}
	if opts.DetailCacheTTL > 0 {
		c.details = expirable.NewLRU[int64, ListingDetail](detailCacheSize, nil, opts.DetailCacheTTL)
	}
	return c
}

// URL is the absolute url of a call, resty middleware sees the url as it was
// passed so it is never made relative to a base url.
func (c *Client) URL(endpoint string, params Params) string {
	url := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		url += "?" + params.Encode()
	}
	return url
}

// call performs a GET on the endpoint and classifies the envelope, the
// returned envelope is valid whenever it could be decoded.
func (c *Client) call(ctx context.Context, endpoint string, params Params) (Envelope, error) {
	ctx, span := tracer.Start(ctx, endpoint)
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.URL(endpoint, params))
	if err != nil {
		err = &TransportError{Endpoint: endpoint, Err: err}
		c.tel.ReportBroken(report_client_request, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Envelope{}, err
	}

	var env Envelope
	err = json.Unmarshal(res.Body(), &env)
	if err != nil {
		err = &TransportError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("decode response (%s): %w", res.Status(), err),
		}
		c.tel.ReportBroken(report_client_decode, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Envelope{}, err
	}

	outcome := Classify(env)
	span.SetAttributes(
		attribute.Int("stepn.code", env.Code),
		attribute.String("stepn.outcome", outcome.String()),
	)
	err = env.Err()
	if err != nil {
		c.tel.ReportDebug(report_client_outcome, endpoint, outcome.String(), env.Code, env.Msg)
		span.SetStatus(codes.Error, outcome.String())
		return env, fmt.Errorf("%s: %w", endpoint, err)
	}
	return env, nil
}

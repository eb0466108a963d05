package hikcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/technosupport/secops/internal/metrics"
)

const maxErrorMessage = 256

type RequestOptions struct {
	Method  string // defaults to GET
	Headers map[string]string
	Query   url.Values
	Body    any
}

// Gateway issues authorized calls to the device-management API.
type Gateway struct {
	tokens *TokenManager
	client *resty.Client
}

// NewGateway wraps httpClient's transport with bearer injection from tokens.
func NewGateway(tokens *TokenManager, httpClient *http.Client) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	authed := &http.Client{
		Transport:     &oauth2.Transport{Source: tokens, Base: base},
		Timeout:       httpClient.Timeout,
		CheckRedirect: httpClient.CheckRedirect,
	}
	return &Gateway{tokens: tokens, client: resty.NewWithClient(authed)}
}

// Request calls {endpoint}{path}. An unusable token is refreshed once; if that fails no
// request is sent. Every error returned is an *IntegrationError.
func (g *Gateway) Request(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	raw, err := g.request(ctx, path, opts)
	result := "success"
	if ie, ok := err.(*IntegrationError); ok {
		result = string(ie.Kind)
	}
	metrics.GatewayRequestsTotal.WithLabelValues(result).Inc()
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (g *Gateway) request(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	cfg, ok := g.tokens.Config()
	if !ok {
		return nil, ErrNotConfigured
	}

	if !g.tokens.IsValid() || !g.tokens.HasAccessToken() {
		if !g.tokens.Refresh(ctx) {
			return nil, &IntegrationError{Kind: KindTokenRefreshFailed, Message: "token refresh failed; request not sent"}
		}
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	req := g.client.R().SetContext(ctx)
	for k, v := range opts.Headers {
		req.SetHeader(k, v)
	}
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader("Accept", "application/json")
	if opts.Query != nil {
		req.SetQueryParamsFromValues(opts.Query)
	}
	if opts.Body != nil {
		req.SetBody(opts.Body)
	}

	start := time.Now()
	resp, err := req.Execute(method, cfg.Endpoint+path)
	if err != nil {
		return nil, &IntegrationError{Kind: KindTransport, Message: "device API unreachable", Err: err}
	}
	metrics.GatewayRequestDuration.Observe(time.Since(start).Seconds())

	if !resp.IsSuccess() {
		return nil, &IntegrationError{
			Kind:       KindRemoteAPI,
			StatusCode: resp.StatusCode(),
			Message:    remoteMessage(resp.StatusCode(), resp.Body()),
		}
	}

	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, &IntegrationError{Kind: KindRemoteAPI, StatusCode: resp.StatusCode(), Message: "device API returned a non-JSON body"}
	}
	return json.RawMessage(body), nil
}

// remoteMessage picks a readable message out of an error response.
func remoteMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, m := range []string{payload.Message, payload.Msg, payload.Error} {
			if m != "" {
				return truncate(m)
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text)
	}
	return http.StatusText(status)
}

func truncate(s string) string {
	if len(s) > maxErrorMessage {
		return s[:maxErrorMessage]
	}
	return s
}

// Package gateway talks to the storage network's HTTP gateway: the GraphQL
// query endpoint, per-transaction status, raw content, wallet balances, and
// an optional fiat price feed.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"permadeploy/internal/pd"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	GraphQLURL string
	PriceURL   string
	PriceAsset string
	Currency   string
	Timeout    time.Duration

	// StatusRetries is how many times a transient status lookup failure is
	// retried. RetryInterval is the first backoff step.
	StatusRetries int
	RetryInterval time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	http          *resty.Client
	graphqlURL    string
	priceURL      string
	priceAsset    string
	currency      string
	statusRetries uint64
	retryInterval time.Duration
	logger        pd.Logger
}

func New(opts Options, logger pd.Logger) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://arweave.net"
	}
	graphql := opts.GraphQLURL
	if graphql == "" {
		graphql = base + "/graphql"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryInterval := opts.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 500 * time.Millisecond
	}
	asset := opts.PriceAsset
	if asset == "" {
		asset = "arweave"
	}
	currency := strings.ToLower(opts.Currency)
	if currency == "" {
		currency = "usd"
	}

	c := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Client{
		http:          c,
		graphqlURL:    graphql,
		priceURL:      opts.PriceURL,
		priceAsset:    asset,
		currency:      currency,
		statusRetries: uint64(max(opts.StatusRetries, 0)),
		retryInterval: retryInterval,
		logger:        pd.OrNop(logger),
	}
}

// BaseURL returns the gateway root used for links.
func (c *Client) BaseURL() string { return c.http.BaseURL }

// TxInfo is what the network knows about a transaction.
type TxInfo struct {
	ID          string
	Confirmed   bool
	BlockHeight int64
}

const txQuery = `query($id: ID!) { transaction(id: $id) { id block { height } } }`

type graphQLResponse struct {
	Data struct {
		Transaction *struct {
			ID    string `json:"id"`
			Block *struct {
				Height int64 `json:"height"`
			} `json:"block"`
		} `json:"transaction"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// QueryTransaction looks id up through the GraphQL endpoint. It returns
// nil, nil when the index does not know the transaction.
func (c *Client) QueryTransaction(ctx context.Context, id string) (*TxInfo, error) {
	var out graphQLResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"query": txQuery, "variables": map[string]string{"id": id}}).
		Post(c.graphqlURL)
	if err != nil {
		return nil, fmt.Errorf("%w: graphql query: %v", pd.ErrNetwork, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: graphql query: status %d", pd.ErrNetwork, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: graphql query: decoding response: %v", pd.ErrNetwork, err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql query: %s", pd.ErrNetwork, out.Errors[0].Message)
	}
	tx := out.Data.Transaction
	if tx == nil {
		return nil, nil
	}
	info := &TxInfo{ID: tx.ID}
	if tx.Block != nil {
		info.Confirmed = true
		info.BlockHeight = tx.Block.Height
	}
	return info, nil
}

// StatusInfo is the answer of the per-transaction status endpoint.
type StatusInfo struct {
	Found         bool
	Confirmed     bool
	BlockHeight   int64
	Confirmations int64
}

type statusBody struct {
	BlockHeight   int64 `json:"block_height"`
	Confirmations int64 `json:"number_of_confirmations"`
}

// TransactionStatus queries /tx/{id}/status. 200 means confirmed, 202
// pending and 404 unknown. Transport failures and 5xx responses are retried
// with exponential backoff.
func (c *Client) TransactionStatus(ctx context.Context, id string) (*StatusInfo, error) {
	op := func() (*StatusInfo, error) {
		resp, err := c.http.R().SetContext(ctx).Get("/tx/" + id + "/status")
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(fmt.Errorf("%w: tx status: %v", pd.ErrNetwork, err))
			}
			return nil, fmt.Errorf("%w: tx status: %v", pd.ErrNetwork, err)
		}

		switch code := resp.StatusCode(); {
		case code == http.StatusOK:
			info := &StatusInfo{Found: true, Confirmed: true}
			var body statusBody
			if err := json.Unmarshal(resp.Body(), &body); err == nil {
				info.BlockHeight = body.BlockHeight
				info.Confirmations = body.Confirmations
			}
			return info, nil
		case code == http.StatusAccepted:
			return &StatusInfo{Found: true}, nil
		case code == http.StatusNotFound:
			return &StatusInfo{}, nil
		case code == http.StatusTooManyRequests || code >= 500:
			return nil, fmt.Errorf("%w: tx status: status %d", pd.ErrNetwork, code)
		default:
			return nil, backoff.Permanent(fmt.Errorf("%w: tx status: status %d", pd.ErrNetwork, code))
		}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryInterval
	exp.Multiplier = 2
	exp.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, c.statusRetries), ctx)

	return backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		c.logger.Debug("retrying tx status", "id", id, "error", err, "wait", wait)
	})
}

// Fetch downloads the raw content stored under id.
func (c *Client) Fetch(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/" + id)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", pd.ErrNetwork, id, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%w: content %s", pd.ErrNotFound, id)
	case resp.IsError():
		return nil, fmt.Errorf("%w: fetching %s: status %d", pd.ErrNetwork, id, resp.StatusCode())
	}
	return resp.Body(), nil
}

// Accessible reports whether content id can be retrieved, without reading
// the body.
func (c *Client) Accessible(ctx context.Context, id string) error {
	resp, err := c.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get("/" + id)
	if err != nil {
		return fmt.Errorf("%w: fetching %s: %v", pd.ErrNetwork, id, err)
	}
	if body := resp.RawBody(); body != nil {
		body.Close()
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: content %s", pd.ErrNotFound, id)
	case resp.StatusCode() >= 400:
		return fmt.Errorf("%w: fetching %s: status %d", pd.ErrNetwork, id, resp.StatusCode())
	}
	return nil
}

// Balance returns the balance of address in winston, as the integer string
// the gateway reports.
func (c *Client) Balance(ctx context.Context, address string) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/wallet/" + address + "/balance")
	if err != nil {
		return "", fmt.Errorf("%w: balance: %v", pd.ErrNetwork, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: balance: status %d", pd.ErrNetwork, resp.StatusCode())
	}
	winston := strings.TrimSpace(resp.String())
	if !isDigits(winston) {
		return "", fmt.Errorf("%w: balance: unexpected body %q", pd.ErrNetwork, winston)
	}
	return winston, nil
}

// ErrNoPriceFeed is returned by Price when no feed is configured.
var ErrNoPriceFeed = errors.New("no price feed configured")

// Price returns the fiat price of one token from the configured feed, which
// must answer {"<asset>":{"<currency>":<price>}}.
func (c *Client) Price(ctx context.Context) (float64, error) {
	if c.priceURL == "" {
		return 0, ErrNoPriceFeed
	}
	var out map[string]map[string]float64
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"ids": c.priceAsset, "vs_currencies": c.currency}).
		Get(c.priceURL)
	if err != nil {
		return 0, fmt.Errorf("%w: price feed: %v", pd.ErrNetwork, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%w: price feed: status %d", pd.ErrNetwork, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, fmt.Errorf("%w: price feed: decoding response: %v", pd.ErrNetwork, err)
	}
	price, ok := out[c.priceAsset][c.currency]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("%w: price feed: no %s/%s quote", pd.ErrNetwork, c.priceAsset, c.currency)
	}
	return price, nil
}

// Currency returns the fiat currency code prices are quoted in.
func (c *Client) Currency() string { return c.currency }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Package yahoo prices equities from Yahoo Finance.
//
// The bulk tier uses the quote API through github.com/piquette/finance-go, split into
// concurrent chunks. The individual tier reads the v8 chart API for a single symbol. Both
// tiers share one HTTP client, with its timeout, cache and user agent.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/date"
	"github.com/etnz/pricebook/logger"
	"github.com/etnz/pricebook/netutil"
	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	QuoteURL          string // finance-go backend root, the v7 quote path is appended
	ChartURL          string
	ChunkSize         int
	Concurrency       int
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables rate limiting
	Burst             int
	Location          *time.Location // market time zone used to date quotes
	Cache             bool           // cache responses on disk for the day
}

// Client implements pricebook.BulkQuoter and pricebook.Quoter.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter

	// list fetches quotes for a batch of symbols. Tests replace it.
	list func(ctx context.Context, symbols []string) ([]finance.Quote, error)
}

var _ pricebook.BulkQuoter = (*Client)(nil)
var _ pricebook.Quoter = (*Client)(nil)

// New returns a client.
func New(opts Options) *Client {
	if opts.QuoteURL == "" {
		opts.QuoteURL = finance.YFinURL
	}
	if opts.ChartURL == "" {
		opts.ChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	c := &Client{
		opts: opts,
		http: netutil.NewClient(&http.Client{Timeout: opts.Timeout}, opts.Cache),
	}
	c.list = c.listQuotes
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}
	return c
}

// listQuotes drains a finance-go quote iterator. The request goes through a backend bound to
// c.http rather than the finance-go global one.
func (c *Client) listQuotes(ctx context.Context, symbols []string) ([]finance.Quote, error) {
	qc := quote.Client{B: &finance.BackendConfiguration{
		Type:       finance.YFinBackend,
		URL:        c.opts.QuoteURL,
		HTTPClient: c.http,
	}}
	var quotes []finance.Quote
	iter := qc.ListP(&quote.Params{Params: finance.Params{Context: &ctx}, Symbols: symbols})
	for iter.Next() {
		quotes = append(quotes, *iter.Quote())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return quotes, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}

// BulkQuotes prices symbols in chunks fetched concurrently. A failing chunk is logged and
// contributes nothing; the other chunks still count.
func (c *Client) BulkQuotes(ctx context.Context, symbols []string) map[string]pricebook.Quote {
	log := logger.L().With(zap.String("tier", string(pricebook.Bulk)))
	var mu sync.Mutex
	res := make(map[string]pricebook.Quote, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for start := 0; start < len(symbols); start += c.opts.ChunkSize {
		chunk := symbols[start:min(start+c.opts.ChunkSize, len(symbols))]
		g.Go(func() error {
			if err := c.wait(ctx); err != nil {
				return err
			}
			quotes, err := c.list(ctx, chunk)
			if err != nil {
				log.Warn("yahoo.bulk_chunk_failed", zap.Int("symbols", len(chunk)), zap.Error(err))
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, q := range quotes {
				if pq, ok := c.convert(q); ok {
					res[q.Symbol] = pq
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("yahoo.bulk_interrupted", zap.Error(err))
	}
	return res
}

// convert reads the price of a finance-go quote, falling back to the previous close when the
// market price is not set. RegularMarketTime dates the market price only: a previous close is
// left undated.
func (c *Client) convert(q finance.Quote) (pricebook.Quote, bool) {
	if q.RegularMarketPrice > 0 {
		return pricebook.Quote{
			Price: decimal.NewFromFloat(q.RegularMarketPrice),
			Date:  date.FromUnix(int64(q.RegularMarketTime), c.opts.Location),
		}, true
	}
	if q.RegularMarketPreviousClose > 0 {
		return pricebook.Quote{Price: decimal.NewFromFloat(q.RegularMarketPreviousClose)}, true
	}
	return pricebook.Quote{}, false
}

// Quote prices one symbol from its daily chart.
func (c *Client) Quote(ctx context.Context, symbol string) (pricebook.Quote, bool) {
	q, err := c.chartQuote(ctx, symbol)
	if err != nil {
		logger.L().Debug("yahoo.quote_failed", zap.String("symbol", symbol), zap.Error(err))
		return pricebook.Quote{}, false
	}
	return q, true
}

func (c *Client) chartQuote(ctx context.Context, symbol string) (pricebook.Quote, error) {
	if err := c.wait(ctx); err != nil {
		return pricebook.Quote{}, err
	}
	addr := fmt.Sprintf("%s/%s?range=1d&interval=1d", c.opts.ChartURL, url.PathEscape(symbol))
	var jobj any
	if err := netutil.GetJSON(ctx, c.http, addr, &jobj); err != nil {
		return pricebook.Quote{}, fmt.Errorf("error in wget %q: %w", symbol, err)
	}

	price, err := jfloat("$.chart.result[0].meta.regularMarketPrice", jobj)
	if err != nil || price <= 0 {
		// fall back to the last close of the day
		price, err = lastClose(jobj)
		if err != nil {
			return pricebook.Quote{}, fmt.Errorf("error parsing %q: %w", symbol, err)
		}
	}
	var on date.Date
	if ts, err := jfloat("$.chart.result[0].meta.regularMarketTime", jobj); err == nil {
		on = date.FromUnix(int64(ts), c.opts.Location)
	}
	return pricebook.Quote{Price: decimal.NewFromFloat(price), Date: on}, nil
}

// Exists reports whether Yahoo knows the symbol.
func (c *Client) Exists(ctx context.Context, symbol string) bool {
	_, err := c.chartQuote(ctx, symbol)
	return err == nil
}

// jfloat evaluates a JSONPath expected to select a single number.
func jfloat(path string, jobj any) (float64, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", path, err)
	}
	// jsonpath may return a list of one answer or the answer itself: keep the first one.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		return 0, fmt.Errorf("%q: not a number: %v", path, jval)
	}
	return val, nil
}

// lastClose returns the last non-null close of the chart.
func lastClose(jobj any) (float64, error) {
	path := "$.chart.result[0].indicators.quote[0].close"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", path, err)
	}
	closes, _ := jval.([]any)
	for i := len(closes) - 1; i >= 0; i-- {
		if v, ok := closes[i].(float64); ok && v > 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%q: no close", path)
}

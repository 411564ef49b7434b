// Package amfi reads the daily NAV file published by the Association of Mutual Funds in India.
//
// The file (NAVAll.txt) is a list of ';' separated rows under a single header line:
//
//	Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date
//	119551;INF209KA12Z1;INF209KA13Z9;Aditya Birla Sun Life Banking & PSU Debt Fund  - DIRECT - IDCW;105.5187;14-Mar-2025
//
// interleaved with fund house and category headings that have no ';'.
package amfi

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/date"
	"github.com/etnz/pricebook/logger"
	"github.com/etnz/pricebook/netutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultURL is the public NAV file.
const DefaultURL = "https://www.amfiindia.com/spages/NAVAll.txt"

// DateFormat is the layout of the Date column.
const DateFormat = "02-Jan-2006"

// Client implements pricebook.NAVTabler.
type Client struct {
	url  string
	http *http.Client
}

var _ pricebook.NAVTabler = (*Client)(nil)

// New returns a client for the NAV file at url (DefaultURL when empty).
func New(url string, timeout time.Duration, cache bool) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:  url,
		http: netutil.NewClient(&http.Client{Timeout: timeout}, cache),
	}
}

// NAVTable downloads and parses the NAV file. Any failure yields an empty table.
func (c *Client) NAVTable(ctx context.Context) *pricebook.NAVTable {
	log := logger.L().With(zap.String("tier", string(pricebook.NAV)), zap.String("url", c.url))
	body, err := netutil.Get(ctx, c.http, c.url)
	if err != nil {
		log.Warn("amfi.download_failed", zap.Error(err))
		return pricebook.NewNAVTable(nil)
	}
	table, err := Parse(bytes.NewReader(body))
	if err != nil {
		log.Warn("amfi.parse_failed", zap.Error(err))
		return pricebook.NewNAVTable(nil)
	}
	log.Info("amfi.loaded", zap.Int("rows", table.Len()))
	return table
}

// ErrNoHeader is returned when the "Scheme Code" header line is absent.
var ErrNoHeader = errors.New("cannot locate the Scheme Code header")

// columns are located by name prefix, to survive small header wording changes.
var columns = map[string]string{
	"code":  "Scheme Code",
	"isin1": "ISIN Div Payout",
	"isin2": "ISIN Div Reinvestment",
	"name":  "Scheme Name",
	"nav":   "Net Asset Value",
	"date":  "Date",
}

// Parse reads a NAV file. Rows without an ISIN, or with a NAV or date that does not parse
// (like "N.A."), are skipped. A file without header or without any row is an error.
func Parse(r io.Reader) (*pricebook.NAVTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var index map[string]int
	width := 0
	var rows []pricebook.NAVRow
	for scanner.Scan() {
		line := scanner.Text()
		if index == nil {
			if strings.Contains(line, "Scheme Code") {
				index, width = headerIndex(line)
			}
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) < width {
			continue // fund house, category or blank line
		}
		get := func(col string) string {
			i, ok := index[col]
			if !ok {
				return ""
			}
			return strings.TrimSpace(parts[i])
		}

		nav, err := decimal.NewFromString(get("nav"))
		if err != nil || !nav.IsPositive() {
			continue
		}
		on, err := date.ParseLayout(DateFormat, get("date"))
		if err != nil {
			continue
		}
		var ids []string
		for _, col := range []string{"isin1", "isin2"} {
			if id := get(col); isISIN(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		rows = append(rows, pricebook.NAVRow{
			SchemeCode:  get("code"),
			Identifiers: ids,
			Name:        get("name"),
			NAV:         nav,
			Date:        on,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read NAV file: %w", err)
	}
	if index == nil {
		return nil, ErrNoHeader
	}
	if len(rows) == 0 {
		return nil, errors.New("NAV file has no usable row")
	}
	return pricebook.NewNAVTable(rows), nil
}

func headerIndex(line string) (map[string]int, int) {
	header := strings.Split(line, ";")
	index := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		for col, prefix := range columns {
			if _, done := index[col]; !done && strings.HasPrefix(h, prefix) {
				index[col] = i
			}
		}
	}
	return index, len(header)
}

// isISIN filters out the placeholders ("-", "") used when a share class has no ISIN.
func isISIN(s string) bool {
	return len(s) == 12 && strings.Trim(s, "-") != ""
}

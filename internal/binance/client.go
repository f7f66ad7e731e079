// Package binance provides a minimal REST client for Binance USDT-margined
// futures market data. Only public endpoints are used; no orders are ever
// placed from this codebase.
package binance

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://fapi.binance.com"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Kline represents a candlestick
type Kline struct {
	OpenTime         int64
	Open             float64
	High             float64
	Low              float64
	Close            float64
	Volume           float64
	CloseTime        int64
	QuoteAssetVolume float64
	NumberOfTrades   int
}

// Ticker24hr represents 24hr ticker price change statistics
type Ticker24hr struct {
	Symbol             string  `json:"symbol"`
	PriceChange        float64 `json:"priceChange,string"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
	LastPrice          float64 `json:"lastPrice,string"`
	Volume             float64 `json:"volume,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
	OpenTime           int64   `json:"openTime"`
	CloseTime          int64   `json:"closeTime"`
	Count              int64   `json:"count"`
}

// GetKlines fetches candlestick data
func (c *Client) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(fmt.Sprintf("/fapi/v1/klines?%s", params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error fetching klines: %w", err)
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	klines := make([]Kline, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 9 {
			return nil, fmt.Errorf("malformed kline row at index %d", i)
		}
		klines[i] = Kline{
			OpenTime:         int64(parseFloat(raw[0])),
			Open:             parseFloat(raw[1]),
			High:             parseFloat(raw[2]),
			Low:              parseFloat(raw[3]),
			Close:            parseFloat(raw[4]),
			Volume:           parseFloat(raw[5]),
			CloseTime:        int64(parseFloat(raw[6])),
			QuoteAssetVolume: parseFloat(raw[7]),
			NumberOfTrades:   int(parseFloat(raw[8])),
		}
	}
	return klines, nil
}

// GetCurrentPrice fetches the latest traded price for a symbol
func (c *Client) GetCurrentPrice(symbol string) (float64, error) {
	body, err := c.get(fmt.Sprintf("/fapi/v1/ticker/price?symbol=%s", url.QueryEscape(symbol)))
	if err != nil {
		return 0, fmt.Errorf("error fetching price: %w", err)
	}

	var priceResp struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price,string"`
	}
	if err := json.Unmarshal(body, &priceResp); err != nil {
		return 0, fmt.Errorf("error parsing price: %w", err)
	}
	if priceResp.Price <= 0 {
		return 0, fmt.Errorf("invalid price %f for %s", priceResp.Price, symbol)
	}
	return priceResp.Price, nil
}

// Get24hrTickers fetches 24hr ticker data for all symbols
func (c *Client) Get24hrTickers() ([]Ticker24hr, error) {
	body, err := c.get("/fapi/v1/ticker/24hr")
	if err != nil {
		return nil, fmt.Errorf("error fetching tickers: %w", err)
	}

	var tickers []Ticker24hr
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("error parsing tickers: %w", err)
	}
	return tickers, nil
}

// TopSymbolsByVolume returns up to limit USDT-quoted symbols ordered by 24h
// quote volume, highest first.
func (c *Client) TopSymbolsByVolume(limit int) ([]string, error) {
	tickers, err := c.Get24hrTickers()
	if err != nil {
		return nil, err
	}

	usdt := make([]Ticker24hr, 0, len(tickers))
	for _, t := range tickers {
		if strings.HasSuffix(t.Symbol, "USDT") {
			usdt = append(usdt, t)
		}
	}
	sort.Slice(usdt, func(i, j int) bool {
		return usdt[i].QuoteVolume > usdt[j].QuoteVolume
	})

	if limit > len(usdt) {
		limit = len(usdt)
	}
	symbols := make([]string, limit)
	for i := 0; i < limit; i++ {
		symbols[i] = usdt[i].Symbol
	}
	return symbols, nil
}

// FallbackSymbols is the static universe used when the exchange call fails.
func FallbackSymbols() []string {
	return []string{
		"BTCUSDT", "ETHUSDT", "BNBUSDT", "XRPUSDT", "ADAUSDT",
		"DOGEUSDT", "SOLUSDT", "DOTUSDT", "MATICUSDT", "LTCUSDT",
		"AVAXUSDT", "LINKUSDT", "ATOMUSDT", "UNIUSDT", "ETCUSDT",
		"XLMUSDT", "APTUSDT", "NEARUSDT", "FILUSDT", "AAVEUSDT",
	}
}

func (c *Client) get(path string) ([]byte, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}
	return body, nil
}

func parseFloat(val interface{}) float64 {
	switch v := val.(type) {
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case float64:
		return v
	default:
		return 0
	}
}

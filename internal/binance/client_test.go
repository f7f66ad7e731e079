package binance

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func TestGetKlines(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/klines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "4h" || q.Get("limit") != "2" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`[
			[1700000000000,"42000.1","42500.5","41800.0","42300.2","1234.5",1700014399999,"52000000.0",9876,"600.0","25000000.0","0"],
			[1700014400000,"42300.2","42800.0","42100.0","42650.8","987.6",1700028799999,"42000000.0",7654,"500.0","21000000.0","0"]
		]`))
	})

	klines, err := client.GetKlines("BTCUSDT", "4h", 2)
	if err != nil {
		t.Fatalf("GetKlines: %v", err)
	}
	if len(klines) != 2 {
		t.Fatalf("len = %d, want 2", len(klines))
	}
	first := klines[0]
	if first.OpenTime != 1700000000000 || first.Open != 42000.1 || first.High != 42500.5 ||
		first.Low != 41800.0 || first.Close != 42300.2 || first.Volume != 1234.5 {
		t.Errorf("first kline = %+v", first)
	}
	if first.NumberOfTrades != 9876 {
		t.Errorf("NumberOfTrades = %d", first.NumberOfTrades)
	}
}

func TestGetKlinesMalformedRow(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1700000000000,"42000.1"]]`))
	})

	if _, err := client.GetKlines("BTCUSDT", "4h", 1); err == nil {
		t.Fatal("want error for a truncated kline row")
	}
}

func TestGetKlinesAPIError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	if _, err := client.GetKlines("NOPE", "4h", 1); err == nil {
		t.Fatal("want error on non-200 status")
	}
}

func TestGetCurrentPrice(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDT" {
			t.Errorf("symbol = %s", got)
		}
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"2456.78"}`))
	})

	price, err := client.GetCurrentPrice("ETHUSDT")
	if err != nil {
		t.Fatalf("GetCurrentPrice: %v", err)
	}
	if price != 2456.78 {
		t.Errorf("price = %v, want 2456.78", price)
	}
}

func TestGetCurrentPriceRejectsNonPositive(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"0"}`))
	})

	if _, err := client.GetCurrentPrice("ETHUSDT"); err == nil {
		t.Fatal("want error for a zero price")
	}
}

func TestTopSymbolsByVolume(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"symbol":"ETHUSDT","quoteVolume":"300.0","lastPrice":"1","volume":"1","priceChange":"0","priceChangePercent":"0"},
			{"symbol":"BTCBUSD","quoteVolume":"900.0","lastPrice":"1","volume":"1","priceChange":"0","priceChangePercent":"0"},
			{"symbol":"BTCUSDT","quoteVolume":"500.0","lastPrice":"1","volume":"1","priceChange":"0","priceChangePercent":"0"},
			{"symbol":"DOGEUSDT","quoteVolume":"100.0","lastPrice":"1","volume":"1","priceChange":"0","priceChangePercent":"0"}
		]`))
	})

	symbols, err := client.TopSymbolsByVolume(2)
	if err != nil {
		t.Fatalf("TopSymbolsByVolume: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT"}
	if len(symbols) != 2 || symbols[0] != want[0] || symbols[1] != want[1] {
		t.Errorf("symbols = %v, want %v", symbols, want)
	}
}

func TestTopSymbolsByVolumeLimitAboveUniverse(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","quoteVolume":"500.0","lastPrice":"1","volume":"1","priceChange":"0","priceChangePercent":"0"}
		]`))
	})

	symbols, err := client.TopSymbolsByVolume(10)
	if err != nil {
		t.Fatalf("TopSymbolsByVolume: %v", err)
	}
	if len(symbols) != 1 {
		t.Errorf("len = %d, want 1", len(symbols))
	}
}

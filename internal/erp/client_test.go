package erp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"ldb/internal"
	"ldb/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	cfg, _ := config.Load()
	cfg.ERPAPIToken = "test"
	cfg.ERPAPIBaseURL = "https://example.test/rexant/hs/api/v1"
	cfg.ERPRateLimitRPS = 1000
	cfg.ERPPageSize = 2

	client := NewClient(cfg)
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func envelopeBody(t *testing.T, results []map[string]any) io.ReadCloser {
	t.Helper()
	blob, err := json.Marshal(map[string]any{"result": map[string]any{"results": results}})
	if err != nil {
		t.Fatal(err)
	}
	return io.NopCloser(strings.NewReader(string(blob)))
}

func TestStockPagingWithRetry(t *testing.T) {
	attempt := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/rexant/hs/api/v1/remain" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token test" {
			t.Fatalf("unexpected auth header %q", got)
		}

		attempt++
		if attempt == 1 {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader(`{"error":"slow down"}`)),
				Header:     make(http.Header),
			}, nil
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var results []map[string]any
		if offset == 0 {
			results = []map[string]any{
				{"article": "A-1", "attribute": []map[string]any{{"count": 10, "reserv": 3}}},
				{"article": "A-1", "attribute": []map[string]any{{"count": 5, "reserv": 0}}},
			}
		} else {
			results = []map[string]any{
				{"article": "B-2", "attribute": []map[string]any{{"count": 2, "reserv": 4}}},
			}
		}
		return &http.Response{StatusCode: http.StatusOK, Body: envelopeBody(t, results), Header: make(http.Header)}, nil
	})

	stock, err := client.Stock(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stock) != 2 {
		t.Fatalf("len=%d", len(stock))
	}
	if s := stock["A-1"]; s.Total != 15 || s.Reserve != 3 {
		t.Fatalf("A-1 stock %+v", s)
	}
	if s := stock["B-2"]; s.Total != 2 || s.Reserve != 4 {
		t.Fatalf("B-2 stock %+v", s)
	}
}

func TestProductsDecoding(t *testing.T) {
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		results := []map[string]any{
			{
				"article": "KG-100", "name": "Кабель гибкий", "sdsclass": map[string]any{"rusname": "Кабели силовые"},
				"unit": "бухта", "unitpak": 1, "comunit": "метр", "comunitpak": 100,
			},
			{"article": "X-1", "name": "Без класса", "sdsclass": map[string]any{"rusname": " "}},
		}
		return &http.Response{StatusCode: http.StatusOK, Body: envelopeBody(t, results), Header: make(http.Header)}, nil
	})

	var products []internal.FeedProduct
	err := client.Products(context.Background(), func(p internal.FeedProduct) error {
		products = append(products, p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("len=%d", len(products))
	}
	if products[0].ClassName != "Кабели силовые" || products[0].ComUnitPak != 100 {
		t.Fatalf("product %+v", products[0])
	}
	if products[1].ClassName != "" {
		t.Fatalf("class name not trimmed: %q", products[1].ClassName)
	}
}

func TestAttributesFirstOccurrenceWins(t *testing.T) {
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		results := []map[string]any{
			{
				"article": "KG-100",
				"attribute": []map[string]any{
					{"characteristic": "Сечение", "value1": 2.5, "unit": "мм2"},
					{"characteristic": "Сечение", "value1": "999"},
					{"characteristic": "Цвет", "value1": "белый"},
					{"characteristic": ""},
				},
			},
		}
		return &http.Response{StatusCode: http.StatusOK, Body: envelopeBody(t, results), Header: make(http.Header)}, nil
	})

	attrs, err := client.Attributes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := attrs["KG-100"]
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Characteristic != "Сечение" || got[0].Value1 != "2.5" || got[0].Unit != "мм2" {
		t.Fatalf("attr %+v", got[0])
	}
}

func TestAttributeValueJoin(t *testing.T) {
	cases := []struct {
		name string
		attr internal.FeedAttribute
		want string
	}{
		{name: "all parts", attr: internal.FeedAttribute{Value1: "2.5", Value2: "x", Unit: "мм2"}, want: "2.5 x мм2"},
		{name: "value only", attr: internal.FeedAttribute{Value1: "белый"}, want: "белый"},
		{name: "value and unit", attr: internal.FeedAttribute{Value1: "3", Unit: "м"}, want: "3 м"},
		{name: "empty", attr: internal.FeedAttribute{}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := attributeValue(tc.attr); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

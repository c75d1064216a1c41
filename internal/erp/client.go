package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ldb/internal"
	"ldb/internal/config"
)

// Client talks to the 1C product feed. Every endpoint is a GET returning a
// {"result":{"results":[...]}} envelope paged with limit/offset.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type envelope struct {
	Result struct {
		Results []json.RawMessage `json:"results"`
	} `json:"result"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ERPTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.ERPRateLimitRPS),
	}
}

// fetchAll walks one endpoint page by page and hands every result item to
// handle. A short page ends the walk.
func (c *Client) fetchAll(ctx context.Context, endpoint string, pageSize int, handle func(json.RawMessage) error) error {
	if pageSize <= 0 {
		pageSize = 1000
	}
	offset := 0
	for {
		items, err := c.fetchPage(ctx, endpoint, pageSize, offset)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for _, item := range items {
			if err := handle(item); err != nil {
				return err
			}
		}
		if len(items) < pageSize {
			return nil
		}
		offset += pageSize
	}
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, limit, offset int) ([]json.RawMessage, error) {
	if strings.TrimSpace(c.cfg.ERPAPIToken) == "" {
		return nil, errors.New("missing ERP_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.ERPAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Token "+c.cfg.ERPAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("erp status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("erp api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		return env.Result.Results, nil
	}

	if lastErr == nil {
		lastErr = errors.New("erp request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

type feedProductRow struct {
	Article string `json:"article"`
	Name    string `json:"name"`
	Class   struct {
		RusName string `json:"rusname"`
	} `json:"sdsclass"`
	Unit       string  `json:"unit"`
	UnitPak    float64 `json:"unitpak"`
	ComUnit    string  `json:"comunit"`
	ComUnitPak float64 `json:"comunitpak"`
}

// Products streams the full product list page by page; product pages are
// much heavier than the satellite feeds, so they use a smaller fixed page.
func (c *Client) Products(ctx context.Context, handle func(internal.FeedProduct) error) error {
	return c.fetchAll(ctx, "product", 1000, func(raw json.RawMessage) error {
		var row feedProductRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("decode product: %w", err)
		}
		return handle(internal.FeedProduct{
			Article:    row.Article,
			Name:       row.Name,
			ClassName:  strings.TrimSpace(row.Class.RusName),
			Unit:       row.Unit,
			UnitPak:    row.UnitPak,
			ComUnit:    row.ComUnit,
			ComUnitPak: row.ComUnitPak,
		})
	})
}

type attributeRow struct {
	Article   string `json:"article"`
	Attribute []struct {
		Characteristic string          `json:"characteristic"`
		Value1         json.RawMessage `json:"value1"`
		Value2         json.RawMessage `json:"value2"`
		Unit           string          `json:"unit"`
	} `json:"attribute"`
}

// Attributes fetches every product's characteristics keyed by article. The
// first occurrence of a characteristic name wins per article.
func (c *Client) Attributes(ctx context.Context) (map[string][]internal.FeedAttribute, error) {
	out := map[string][]internal.FeedAttribute{}
	err := c.fetchAll(ctx, "etimproduct", c.cfg.ERPPageSize, func(raw json.RawMessage) error {
		var row attributeRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("decode attribute: %w", err)
		}
		if row.Article == "" {
			return nil
		}
		for _, attr := range row.Attribute {
			if attr.Characteristic == "" {
				continue
			}
			if hasCharacteristic(out[row.Article], attr.Characteristic) {
				continue
			}
			out[row.Article] = append(out[row.Article], internal.FeedAttribute{
				Article:        row.Article,
				Characteristic: attr.Characteristic,
				Value1:         rawScalar(attr.Value1),
				Value2:         rawScalar(attr.Value2),
				Unit:           attr.Unit,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func hasCharacteristic(attrs []internal.FeedAttribute, name string) bool {
	for _, a := range attrs {
		if a.Characteristic == name {
			return true
		}
	}
	return false
}

type analogRow struct {
	Article   string `json:"article"`
	Attribute []struct {
		Article string `json:"article"`
		Type    string `json:"type"`
	} `json:"attribute"`
}

func (c *Client) Analogs(ctx context.Context) (map[string][]string, error) {
	out := map[string][]string{}
	err := c.fetchAll(ctx, "analog", c.cfg.ERPPageSize, func(raw json.RawMessage) error {
		var row analogRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("decode analog: %w", err)
		}
		if row.Article == "" {
			return nil
		}
		for _, attr := range row.Attribute {
			if attr.Article != "" && attr.Type == "Аналоги" {
				out[row.Article] = append(out[row.Article], attr.Article)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type barcodeRow struct {
	Article   string `json:"article"`
	Attribute struct {
		Barcode string `json:"barcode"`
	} `json:"attribute"`
}

func (c *Client) Barcodes(ctx context.Context) (map[string][]string, error) {
	out := map[string][]string{}
	err := c.fetchAll(ctx, "barcode", c.cfg.ERPPageSize, func(raw json.RawMessage) error {
		var row barcodeRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("decode barcode: %w", err)
		}
		if row.Article != "" && row.Attribute.Barcode != "" {
			out[row.Article] = append(out[row.Article], row.Attribute.Barcode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type photoRow struct {
	Article  string `json:"article"`
	FileLink string `json:"filelink"`
}

func (c *Client) Photos(ctx context.Context) (map[string][]string, error) {
	out := map[string][]string{}
	err := c.fetchAll(ctx, "photo", c.cfg.ERPPageSize, func(raw json.RawMessage) error {
		var row photoRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("decode photo: %w", err)
		}
		if row.Article != "" && row.FileLink != "" {
			out[row.Article] = append(out[row.Article], row.FileLink)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type priceRow struct {
	Article   string `json:"article"`
	Attribute []struct {
		RateName string   `json:"ratename"`
		Value    *float64 `json:"value"`
	} `json:"attribute"`
}

func (c *Client) Prices(ctx context.Context) (map[string][]internal.ProductPriceRecord, error) {
	out := map[string][]internal.ProductPriceRecord{}
	err := c.fetchAll(ctx, "prices", c.cfg.ERPPageSize, func(raw json.RawMessage) error {
		var row priceRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("decode price: %w", err)
		}
		if row.Article == "" {
			return nil
		}
		for _, attr := range row.Attribute {
			if attr.RateName == "" || attr.Value == nil {
				continue
			}
			out[row.Article] = append(out[row.Article], internal.ProductPriceRecord{
				PriceType: attr.RateName,
				Price:     *attr.Value,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type stockRow struct {
	Article   string `json:"article"`
	Attribute []struct {
		Count   float64 `json:"count"`
		Reserve float64 `json:"reserv"`
	} `json:"attribute"`
}

// Stock sums counts and reserves across warehouses per article.
func (c *Client) Stock(ctx context.Context) (map[string]internal.FeedStock, error) {
	out := map[string]internal.FeedStock{}
	err := c.fetchAll(ctx, "remain", c.cfg.ERPPageSize, func(raw json.RawMessage) error {
		var row stockRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("decode stock: %w", err)
		}
		if row.Article == "" {
			return nil
		}
		stock := out[row.Article]
		stock.Article = row.Article
		for _, attr := range row.Attribute {
			stock.Total += int(attr.Count)
			stock.Reserve += int(attr.Reserve)
		}
		out[row.Article] = stock
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rawScalar renders a feed value that may arrive as string or number.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return formatNumber(f)
	}
	return strings.Trim(string(raw), `"`)
}

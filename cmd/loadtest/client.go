package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Исходы одного HTTP-вызова витрины.
const (
	outcomeOK        = "ok"
	outcomePlaced    = "placed"
	outcomeRejected  = "rejected"
	outcomeInternal  = "internal"
	outcomeTransport = "transport"
	outcomeDecode    = "decode"
)

// internalErrorMessage совпадает с ответом API на инфраструктурный сбой.
const internalErrorMessage = "internal server error"

type orderLine struct {
	articleID int64
	amount    int64
}

// shopClient описывает вызовы витрины, которые делает нагрузочный сценарий.
type shopClient interface {
	PlaceOrder(ctx context.Context, clientID int64, lines []orderLine) (string, error)
	ListOrders(ctx context.Context) (string, error)
}

type httpShopClient struct {
	baseURL string
	http    *http.Client
}

func newHTTPShopClient(baseURL string, client *http.Client) *httpShopClient {
	return &httpShopClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

type shopResponse struct {
	OrderID *int64  `json:"order_id"`
	Error   *string `json:"error"`
}

// PlaceOrder вызывает GET /placeOrder и классифицирует ответ.
// Отказ из-за остатков или неверных параметров считается штатным исходом.
func (c *httpShopClient) PlaceOrder(ctx context.Context, clientID int64, lines []orderLine) (string, error) {
	params := []string{"client_id=" + strconv.FormatInt(clientID, 10)}
	for i, line := range lines {
		n := strconv.Itoa(i + 1)
		params = append(params,
			"article_id_"+n+"="+strconv.FormatInt(line.articleID, 10),
			"amount_"+n+"="+strconv.FormatInt(line.amount, 10),
		)
	}

	body, err := c.get(ctx, "/placeOrder?"+strings.Join(params, "&"))
	if err != nil {
		return outcomeTransport, err
	}

	var resp shopResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return outcomeDecode, fmt.Errorf("decode placeOrder response: %w", err)
	}
	switch {
	case resp.OrderID != nil:
		return outcomePlaced, nil
	case resp.Error != nil && *resp.Error == internalErrorMessage:
		return outcomeInternal, fmt.Errorf("placeOrder: %s", *resp.Error)
	case resp.Error != nil:
		return outcomeRejected, nil
	default:
		return outcomeDecode, fmt.Errorf("unexpected placeOrder response: %s", body)
	}
}

// ListOrders вызывает GET /orders и проверяет, что пришёл JSON-массив.
func (c *httpShopClient) ListOrders(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/orders")
	if err != nil {
		return outcomeTransport, err
	}

	var reports []json.RawMessage
	if err := json.Unmarshal(body, &reports); err != nil {
		var resp shopResponse
		if json.Unmarshal(body, &resp) == nil && resp.Error != nil {
			return outcomeInternal, fmt.Errorf("orders: %s", *resp.Error)
		}
		return outcomeDecode, fmt.Errorf("decode orders response: %w", err)
	}
	return outcomeOK, nil
}

func (c *httpShopClient) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	target, err := url.Parse(c.baseURL + pathAndQuery)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

var _ shopClient = (*httpShopClient)(nil)

package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

// ParseQuery разбирает строку запроса: пары через '&', ключ и значение через первый '='.
// Параметр без '=' считается присутствующим с пустым значением.
// При повторе ключа побеждает последнее значение.
func ParseQuery(raw string) map[string]string {
	params := make(map[string]string)
	if raw == "" {
		return params
	}

	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		params[unescape(key)] = unescape(value)
	}
	return params
}

func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

// ParsePlaceOrderRequest собирает запрос на оформление заказа из параметров.
// Позиции читаются по порядку article_id_1/amount_1, article_id_2/amount_2, ...
// до первого отсутствующего article_id_N.
func ParsePlaceOrderRequest(params map[string]string) (domain.PlaceOrderRequest, error) {
	clientID, err := requireInt(params, "client_id")
	if err != nil {
		return domain.PlaceOrderRequest{}, err
	}

	req := domain.PlaceOrderRequest{ClientID: clientID}
	for i := 1; ; i++ {
		articleKey := fmt.Sprintf("article_id_%d", i)
		if _, ok := params[articleKey]; !ok {
			break
		}
		articleID, err := requireInt(params, articleKey)
		if err != nil {
			return domain.PlaceOrderRequest{}, err
		}
		amount, err := requireInt(params, fmt.Sprintf("amount_%d", i))
		if err != nil {
			return domain.PlaceOrderRequest{}, err
		}
		req.Lines = append(req.Lines, domain.LineRequest{ArticleID: articleID, Amount: amount})
	}

	return req, nil
}

func requireInt(params map[string]string, name string) (int64, error) {
	raw, ok := params[name]
	if !ok {
		return 0, &domain.ParameterError{Name: name, Reason: "is required"}
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &domain.ParameterError{Name: name, Value: raw, Reason: "must be an integer"}
	}
	return value, nil
}

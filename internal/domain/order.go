package domain

import (
	"fmt"
	"time"
)

// LineRequest — запрошенная позиция заказа: товар и количество.
type LineRequest struct {
	ArticleID int64
	Amount    int64
}

// PlaceOrderRequest описывает входные данные для оформления заказа.
type PlaceOrderRequest struct {
	ClientID int64
	// Lines обрабатываются строго в порядке запроса.
	Lines []LineRequest
}

// Validate проверяет запрос до обращения к хранилищу.
// Имена параметров в ошибках совпадают с именами query-параметров HTTP API.
func (r PlaceOrderRequest) Validate() error {
	if r.ClientID <= 0 {
		return &ParameterError{Name: "client_id", Value: fmt.Sprint(r.ClientID), Reason: "must be a positive integer"}
	}
	if len(r.Lines) == 0 {
		return &ParameterError{Name: "article_id_1", Reason: "at least one order line is required"}
	}

	for i, line := range r.Lines {
		idx := i + 1
		if line.ArticleID <= 0 {
			return &ParameterError{
				Name:   fmt.Sprintf("article_id_%d", idx),
				Value:  fmt.Sprint(line.ArticleID),
				Reason: "must be a positive integer",
			}
		}
		if line.Amount <= 0 {
			return &ParameterError{
				Name:   fmt.Sprintf("amount_%d", idx),
				Value:  fmt.Sprint(line.Amount),
				Reason: "must be greater than zero",
			}
		}
	}

	return nil
}

// TotalAmount возвращает суммарное количество единиц во всех позициях.
func (r PlaceOrderRequest) TotalAmount() int64 {
	var total int64
	for _, line := range r.Lines {
		total += line.Amount
	}
	return total
}

// PlacedOrder — результат успешного оформления заказа.
type PlacedOrder struct {
	ID        int64
	ClientID  int64
	CreatedAt time.Time
	Lines     []OrderLine
}

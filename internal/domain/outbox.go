package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// AggregateTypeOrder — тип агрегата для событий заказа.
	AggregateTypeOrder = "order"
	// EventTypeOrderPlaced — событие успешного оформления заказа.
	EventTypeOrderPlaced = "order.placed"
)

// OrderPlacedPayload — тело события order.placed.
type OrderPlacedPayload struct {
	OrderID   int64                   `json:"order_id"`
	ClientID  int64                   `json:"client_id"`
	CreatedAt time.Time               `json:"created_at"`
	Lines     []OrderPlacedLinePayload `json:"lines"`
}

// OrderPlacedLinePayload — позиция в событии order.placed.
type OrderPlacedLinePayload struct {
	ArticleID int64 `json:"article_id"`
	Amount    int64 `json:"amount"`
}

// NewOrderPlacedMessage собирает outbox-сообщение для оформленного заказа.
func NewOrderPlacedMessage(order PlacedOrder) (OutboxMessage, error) {
	payload := OrderPlacedPayload{
		OrderID:   order.ID,
		ClientID:  order.ClientID,
		CreatedAt: order.CreatedAt.UTC(),
		Lines:     make([]OrderPlacedLinePayload, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		payload.Lines = append(payload.Lines, OrderPlacedLinePayload{
			ArticleID: line.ArticleID,
			Amount:    line.Amount,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order placed payload: %w", err)
	}

	return OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: AggregateTypeOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     EventTypeOrderPlaced,
		Payload:       body,
	}, nil
}

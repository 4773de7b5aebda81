package domain

import (
	"context"
	"time"
)

// ShopRepository описывает требования к хранилищу витрины.
type ShopRepository interface {
	// ListArticles возвращает все товары, упорядоченные по ID.
	ListArticles(ctx context.Context) ([]Article, error)
	// GetArticle возвращает товар или ошибку ErrArticleNotFound.
	GetArticle(ctx context.Context, id int64) (Article, error)
	// ListClients возвращает клиентов с краткими сводками их заказов.
	ListClients(ctx context.Context) ([]Client, error)
	// ListOrderReports возвращает агрегированный отчёт по заказам.
	ListOrderReports(ctx context.Context) ([]OrderReport, error)
	// PlaceOrder атомарно создаёт заказ, списывает остатки и добавляет позиции.
	// При любой ошибке никаких изменений не остаётся.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlacedOrder, error)
}

// OutboxRepository отдаёт сообщения transactional outbox на публикацию.
// Сообщения попадают в outbox внутри транзакции оформления заказа.
type OutboxRepository interface {
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
	// DeleteProcessedBefore удаляет до limit сообщений в статусах sent и failed,
	// обновлённых раньше before, и возвращает число удалённых.
	DeleteProcessedBefore(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

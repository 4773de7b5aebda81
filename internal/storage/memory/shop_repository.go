package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

// ShopRepository — in-memory реализация витрины для локального запуска и тестов.
// Оформление заказа выполняется целиком под одной блокировкой,
// изменения применяются только после проверки всех позиций.
type ShopRepository struct {
	mu          sync.RWMutex
	articles    map[int64]domain.Article
	clients     map[int64]domain.Client
	orders      []domain.Order
	lastOrderID int64
	lastLineID  int64
	outbox      *OutboxRepository
	now         func() time.Time
}

// NewShopRepository создаёт пустое хранилище. outbox может быть nil,
// тогда события order.placed не сохраняются.
func NewShopRepository(outbox *OutboxRepository) *ShopRepository {
	return &ShopRepository{
		articles: make(map[int64]domain.Article),
		clients:  make(map[int64]domain.Client),
		outbox:   outbox,
		now:      time.Now,
	}
}

// AddArticle добавляет или заменяет товар.
func (r *ShopRepository) AddArticle(article domain.Article) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles[article.ID] = article
}

// AddClient добавляет или заменяет клиента. Поле Orders игнорируется.
func (r *ShopRepository) AddClient(client domain.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	client.Orders = nil
	r.clients[client.ID] = client
}

// ListArticles возвращает все товары по возрастанию ID.
func (r *ShopRepository) ListArticles(ctx context.Context) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Article, 0, len(r.articles))
	for _, article := range r.articles {
		result = append(result, article)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetArticle возвращает товар или ошибку отсутствующего товара.
func (r *ShopRepository) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return domain.Article{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	article, ok := r.articles[id]
	if !ok {
		return domain.Article{}, domain.NewArticleNotFoundError(id)
	}
	return article, nil
}

// ListClients возвращает клиентов с краткими сводками их заказов.
func (r *ShopRepository) ListClients(ctx context.Context) ([]domain.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	byClient := make(map[int64][]domain.OrderSummary)
	for _, order := range r.orders {
		byClient[order.ClientID] = append(byClient[order.ClientID], domain.OrderSummary{
			ID:        order.ID,
			CreatedAt: order.CreatedAt,
		})
	}

	result := make([]domain.Client, 0, len(r.clients))
	for _, client := range r.clients {
		client.Orders = byClient[client.ID]
		if client.Orders == nil {
			client.Orders = []domain.OrderSummary{}
		}
		result = append(result, client)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListOrderReports агрегирует заказы: имя клиента, число позиций и сумму цен товаров.
func (r *ShopRepository) ListOrderReports(ctx context.Context) ([]domain.OrderReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.OrderReport, 0, len(r.orders))
	for _, order := range r.orders {
		report := domain.OrderReport{
			ID:         order.ID,
			ClientName: r.clients[order.ClientID].Name,
			Lines:      int64(len(order.Lines)),
		}
		for _, line := range order.Lines {
			// Цена учитывается один раз на позицию, как в SQL-отчёте.
			report.Price += r.articles[line.ArticleID].Price
		}
		result = append(result, report)
	}
	return result, nil
}

// PlaceOrder оформляет заказ. Запрос должен быть предварительно провалидирован.
func (r *ShopRepository) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlacedOrder{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[req.ClientID]; !ok {
		return domain.PlacedOrder{}, domain.NewClientNotFoundError(req.ClientID)
	}

	order := domain.PlacedOrder{
		ID:        r.lastOrderID + 1,
		ClientID:  req.ClientID,
		CreatedAt: r.now().UTC(),
		Lines:     make([]domain.OrderLine, 0, len(req.Lines)),
	}

	// Остатки считаем на копии; в основное состояние попадут только после успеха.
	staged := make(map[int64]int64, len(req.Lines))
	lineID := r.lastLineID
	for _, line := range req.Lines {
		article, ok := r.articles[line.ArticleID]
		if !ok {
			return domain.PlacedOrder{}, domain.NewArticleNotFoundError(line.ArticleID)
		}
		available, seen := staged[line.ArticleID]
		if !seen {
			available = article.Amount
		}
		if available < line.Amount {
			return domain.PlacedOrder{}, domain.NewInsufficientStockError(line.ArticleID)
		}
		staged[line.ArticleID] = available - line.Amount

		lineID++
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:        lineID,
			OrderID:   order.ID,
			ArticleID: line.ArticleID,
			Amount:    line.Amount,
		})
	}

	var msg domain.OutboxMessage
	if r.outbox != nil {
		var err error
		msg, err = domain.NewOrderPlacedMessage(order)
		if err != nil {
			return domain.PlacedOrder{}, err
		}
	}

	for id, amount := range staged {
		article := r.articles[id]
		article.Amount = amount
		r.articles[id] = article
	}
	r.lastOrderID = order.ID
	r.lastLineID = lineID

	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	r.orders = append(r.orders, domain.Order{
		ID:        order.ID,
		ClientID:  order.ClientID,
		CreatedAt: order.CreatedAt,
		Lines:     lines,
	})

	if r.outbox != nil {
		r.outbox.Enqueue(msg)
	}

	return order, nil
}

var _ domain.ShopRepository = (*ShopRepository)(nil)

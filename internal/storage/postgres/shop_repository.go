package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// psql — построитель запросов с плейсхолдерами PostgreSQL ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type shopRepository struct {
	db *sql.DB
}

// NewShopRepository создаёт PostgreSQL-реализацию ShopRepository.
func NewShopRepository(store *Store) domain.ShopRepository {
	return &shopRepository{db: store.DB()}
}

func (r *shopRepository) ListArticles(ctx context.Context) ([]domain.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.
		Select("id", "description", "price", "amount").
		From("articles").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]domain.Article, 0)
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.Description, &a.Price, &a.Amount); err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return articles, nil
}

func (r *shopRepository) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var a domain.Article
	err := psql.
		Select("id", "description", "price", "amount").
		From("articles").
		Where(sq.Eq{"id": id}).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&a.ID, &a.Description, &a.Price, &a.Amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, domain.NewArticleNotFoundError(id)
		}
		return domain.Article{}, fmt.Errorf("select article: %w", err)
	}
	return a, nil
}

func (r *shopRepository) ListClients(ctx context.Context) ([]domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.
		Select("id", "name", "address", "city", "country").
		From("clients").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build clients query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.City, &c.Country); err != nil {
			return nil, fmt.Errorf("scan client row: %w", err)
		}
		c.Orders = []domain.OrderSummary{}
		index[c.ID] = len(clients)
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client rows: %w", err)
	}

	summaries, err := r.loadOrderSummaries(ctx)
	if err != nil {
		return nil, err
	}
	for clientID, orders := range summaries {
		if i, ok := index[clientID]; ok {
			clients[i].Orders = orders
		}
	}

	return clients, nil
}

// loadOrderSummaries загружает сводки заказов отдельным запросом, без позиций.
func (r *shopRepository) loadOrderSummaries(ctx context.Context) (map[int64][]domain.OrderSummary, error) {
	query, args, err := psql.
		Select("id", "client_id", "created_at").
		From("orders").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build order summaries query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load order summaries: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.OrderSummary)
	for rows.Next() {
		var (
			summary  domain.OrderSummary
			clientID int64
		)
		if err := rows.Scan(&summary.ID, &clientID, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order summary: %w", err)
		}
		result[clientID] = append(result[clientID], summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order summaries: %w", err)
	}

	return result, nil
}

func (r *shopRepository) ListOrderReports(ctx context.Context) ([]domain.OrderReport, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Сумма цен по позициям без учёта количества, как в исходном отчёте.
	query, args, err := psql.
		Select("o.id", "c.name", "COUNT(ol.id)", "COALESCE(SUM(a.price), 0)").
		From("orders o").
		Join("clients c ON c.id = o.client_id").
		LeftJoin("order_lines ol ON ol.order_id = o.id").
		LeftJoin("articles a ON a.id = ol.article_id").
		GroupBy("o.id", "c.name").
		OrderBy("o.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build order report query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list order reports: %w", err)
	}
	defer rows.Close()

	reports := make([]domain.OrderReport, 0)
	for rows.Next() {
		var rep domain.OrderReport
		if err := rows.Scan(&rep.ID, &rep.ClientName, &rep.Lines, &rep.Price); err != nil {
			return nil, fmt.Errorf("scan order report row: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order report rows: %w", err)
	}

	return reports, nil
}

func (r *shopRepository) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	// После Commit откат возвращает sql.ErrTxDone и ничего не делает.
	defer func() { _ = tx.Rollback() }()

	exists, err := rowExistsTx(ctx, tx, "clients", req.ClientID)
	if err != nil {
		return domain.PlacedOrder{}, err
	}
	if !exists {
		return domain.PlacedOrder{}, domain.NewClientNotFoundError(req.ClientID)
	}

	order := domain.PlacedOrder{
		ClientID: req.ClientID,
		Lines:    make([]domain.OrderLine, 0, len(req.Lines)),
	}
	err = psql.
		Insert("orders").
		Columns("client_id", "created_at").
		Values(req.ClientID, time.Now().UTC()).
		Suffix("RETURNING id, created_at").
		RunWith(tx).
		QueryRowContext(ctx).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.PlacedOrder{}, domain.NewClientNotFoundError(req.ClientID)
		}
		return domain.PlacedOrder{}, fmt.Errorf("insert order: %w", err)
	}

	for _, line := range req.Lines {
		if err := decrementStockTx(ctx, tx, line); err != nil {
			return domain.PlacedOrder{}, err
		}

		orderLine := domain.OrderLine{OrderID: order.ID, ArticleID: line.ArticleID, Amount: line.Amount}
		err := psql.
			Insert("order_lines").
			Columns("order_id", "article_id", "amount").
			Values(order.ID, line.ArticleID, line.Amount).
			Suffix("RETURNING id").
			RunWith(tx).
			QueryRowContext(ctx).
			Scan(&orderLine.ID)
		if err != nil {
			return domain.PlacedOrder{}, fmt.Errorf("insert order line: %w", err)
		}
		order.Lines = append(order.Lines, orderLine)
	}

	msg, err := domain.NewOrderPlacedMessage(order)
	if err != nil {
		return domain.PlacedOrder{}, err
	}
	if err := enqueueOutboxTx(ctx, tx, msg); err != nil {
		return domain.PlacedOrder{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("commit place order: %w", err)
	}

	return order, nil
}

// decrementStockTx атомарно списывает остаток: условие amount >= $1 проверяется
// под блокировкой строки, поэтому параллельные заказы не уводят остаток в минус.
func decrementStockTx(ctx context.Context, tx *sql.Tx, line domain.LineRequest) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE articles
		SET amount = amount - $1
		WHERE id = $2
		  AND amount >= $1
	`, line.Amount, line.ArticleID)
	if err != nil {
		if pgErrorCode(err) == pgCheckViolation {
			return domain.NewInsufficientStockError(line.ArticleID)
		}
		return fmt.Errorf("decrement article stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	exists, err := rowExistsTx(ctx, tx, "articles", line.ArticleID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.NewArticleNotFoundError(line.ArticleID)
	}
	return domain.NewInsufficientStockError(line.ArticleID)
}

func rowExistsTx(ctx context.Context, tx *sql.Tx, table string, id int64) (bool, error) {
	query, args, err := psql.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(table).
		Where(sq.Eq{"id": id}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query for %s: %w", table, err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s exists: %w", table, err)
	}
	return exists, nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ domain.ShopRepository = (*shopRepository)(nil)

package domain

import "time"

// Article — товар с ценой и текущим остатком на складе.
type Article struct {
	ID          int64
	Description string
	// Price хранится целым числом, как и в исходной витрине.
	Price int64
	// Amount — количество единиц на складе, никогда не уходит в минус.
	Amount int64
}

// Client — покупатель, который может оформлять заказы.
type Client struct {
	ID      int64
	Name    string
	Address string
	City    string
	Country string
	// Orders содержит только краткие сводки заказов без позиций и обратной ссылки на клиента.
	Orders []OrderSummary
}

// OrderSummary — укороченное представление заказа для списка клиентов.
type OrderSummary struct {
	ID        int64
	CreatedAt time.Time
}

// Order — заказ клиента.
type Order struct {
	ID        int64
	ClientID  int64
	CreatedAt time.Time
	Lines     []OrderLine
}

// OrderLine — одна позиция заказа: товар и заказанное количество.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ArticleID int64
	Amount    int64
}

// OrderReport — агрегированная строка отчёта по заказам.
type OrderReport struct {
	ID         int64
	ClientName string
	Lines      int64
	// Price — сумма цен товаров по позициям; количество в сумме не учитывается.
	Price int64
}

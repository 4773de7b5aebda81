package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

type articleResponse struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Amount      int64  `json:"amount"`
}

type clientResponse struct {
	ID      int64                  `json:"id"`
	Name    string                 `json:"name"`
	Address string                 `json:"address"`
	City    string                 `json:"city"`
	Country string                 `json:"country"`
	Orders  []orderSummaryResponse `json:"orders"`
}

// orderSummaryResponse не содержит позиций и ссылки на клиента.
type orderSummaryResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type orderReportResponse struct {
	ID     int64  `json:"id"`
	Client string `json:"client"`
	Lines  int64  `json:"lines"`
	Price  int64  `json:"price"`
}

type placeOrderResponse struct {
	OrderID int64 `json:"order_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toArticleResponses(articles []domain.Article) []articleResponse {
	out := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, articleResponse{
			ID:          a.ID,
			Description: a.Description,
			Price:       a.Price,
			Amount:      a.Amount,
		})
	}
	return out
}

func toClientResponses(clients []domain.Client) []clientResponse {
	out := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		orders := make([]orderSummaryResponse, 0, len(c.Orders))
		for _, o := range c.Orders {
			orders = append(orders, orderSummaryResponse{ID: o.ID, CreatedAt: o.CreatedAt})
		}
		out = append(out, clientResponse{
			ID:      c.ID,
			Name:    c.Name,
			Address: c.Address,
			City:    c.City,
			Country: c.Country,
			Orders:  orders,
		})
	}
	return out
}

func toOrderReportResponses(reports []domain.OrderReport) []orderReportResponse {
	out := make([]orderReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, orderReportResponse{
			ID:     r.ID,
			Client: r.ClientName,
			Lines:  r.Lines,
			Price:  r.Price,
		})
	}
	return out
}

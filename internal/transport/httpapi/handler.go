// Package httpapi отдаёт витрину по HTTP: списки и оформление заказа.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

const maxFormBodyBytes = 64 << 10

// internalErrorMessage скрывает детали инфраструктурных сбоев от клиента.
const internalErrorMessage = "internal server error"

// Shop — операции витрины, которые нужны HTTP-слою.
type Shop interface {
	ListArticles(ctx context.Context) ([]domain.Article, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	ListOrderReports(ctx context.Context) ([]domain.OrderReport, error)
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)
}

// Handler обслуживает эндпоинты витрины.
type Handler struct {
	shop   Shop
	logger *log.Entry
}

// NewHandler создаёт обработчик эндпоинтов.
func NewHandler(shop Shop, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "http-api")
	}
	return &Handler{shop: shop, logger: logger}
}

func (h *Handler) listArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.shop.ListArticles(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, toArticleResponses(articles))
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.shop.ListClients(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, toClientResponses(clients))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	reports, err := h.shop.ListOrderReports(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, toOrderReportResponses(reports))
}

// placeOrder принимает параметры из query; для POST также из тела формы,
// значения из тела перекрывают query.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	params := ParseQuery(r.URL.RawQuery)
	if r.Method == http.MethodPost && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxFormBodyBytes))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		for key, value := range ParseQuery(string(body)) {
			params[key] = value
		}
	}

	req, err := ParsePlaceOrderRequest(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	placed, err := h.shop.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, placeOrderResponse{OrderID: placed.ID})
}

// writeError всегда отвечает 200 с телом {"error": "..."}.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.ErrorKindInfrastructure {
		h.logger.WithError(err).WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
		message = internalErrorMessage
	}
	writeJSON(w, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

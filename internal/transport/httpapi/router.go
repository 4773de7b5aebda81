package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// NewRouter собирает chi-роутер витрины.
func NewRouter(shop Shop, logger *log.Entry) http.Handler {
	h := NewHandler(shop, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(recoverer(h.logger))

	r.Get("/", h.index)
	r.Get("/articles", h.listArticles)
	r.Get("/clients", h.listClients)
	r.Get("/orders", h.listOrders)
	r.Get("/placeOrder", h.placeOrder)
	r.Post("/placeOrder", h.placeOrder)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, errorResponse{Error: "method " + r.Method + " not allowed"})
	})

	return r
}

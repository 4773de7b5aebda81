package httpapi

import (
	"html/template"
	"net/http"

	log "github.com/sirupsen/logrus"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><title>Webshop</title></head>
<body>
<h1>Webshop</h1>
<h2>Endpoints</h2>
<dl>
<dt>All articles</dt><dd><a href="{{.Base}}/articles">{{.Base}}/articles</a></dd>
<dt>All orders</dt><dd><a href="{{.Base}}/orders">{{.Base}}/orders</a></dd>
<dt>All clients</dt><dd><a href="{{.Base}}/clients">{{.Base}}/clients</a></dd>
<dt>Place an order</dt><dd><code>{{.Base}}/placeOrder?client_id=&lt;client_id&gt;&amp;article_id_1=&lt;article_id_1&gt;&amp;amount_1=&lt;amount_1&gt;&amp;article_id_2=&lt;article_id_2&gt;&amp;amount_2=&lt;amount_2&gt;</code></dd>
</dl>
</body>
</html>
`))

// index отдаёт статическую страницу со ссылками на эндпоинты.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := indexTemplate.Execute(w, struct{ Base string }{Base: scheme + "://" + r.Host}); err != nil {
		h.logger.WithError(err).Warn("render index page")
	}
}

// notFound сохраняет контракт "всегда 200": неизвестные пути получают индекс.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.logger.WithFields(log.Fields{"path": r.URL.Path}).Debug("unknown path, serving index")
	h.index(w, r)
}

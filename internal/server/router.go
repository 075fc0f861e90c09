package server

import (
	"net/http"
	"time"

	"github.com/thepatisserielane/studio/internal/server/handlers"
	"github.com/thepatisserielane/studio/internal/server/ratelimit"
	"github.com/thepatisserielane/studio/web"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *handlers.Services, pages *web.Pages, version string) http.Handler {
	mux := http.NewServeMux()

	hh := handlers.NewHealthHandler(version)
	th := handlers.NewTextHandler(svc)
	ch := handlers.NewCatalogHandler(svc)
	bh := handlers.NewBlueprintHandler(svc)
	ah := handlers.NewAssetHandler(svc)
	sh := handlers.NewSuggestHandler(svc)
	oh := handlers.NewOrderHandler()
	histh := handlers.NewHistoryHandler(svc)

	// Health check
	mux.Handle("/api/health", Wrap(hh.Health))

	// Site copy endpoints
	mux.Handle("GET /api/text", Wrap(th.ListText))
	mux.Handle("GET /api/text/{key}", Wrap(th.GetText))
	mux.Handle("PUT /api/text/{key}", Wrap(th.SetText))

	// Catalog endpoints
	mux.Handle("GET /api/catalog", Wrap(ch.GetCatalog))
	mux.Handle("PUT /api/catalog", Wrap(ch.ReplaceCatalog))
	mux.Handle("POST /api/catalog/new", Wrap(ch.AddProduct))
	mux.Handle("DELETE /api/catalog/{id}", Wrap(ch.RemoveProduct))
	mux.Handle("POST /api/reset", Wrap(ch.Reset))

	// Blueprint endpoints
	mux.HandleFunc("GET /api/blueprint", bh.Export)
	mux.HandleFunc("POST /api/blueprint", bh.Import)
	mux.Handle("GET /api/blueprint/schema", Wrap(bh.Schema))

	// Media endpoints
	mux.Handle("GET /api/assets", Wrap(ah.List))
	mux.HandleFunc("POST /api/assets/{key}", ah.Upload)
	mux.Handle("DELETE /api/assets/{key}", Wrap(ah.Delete))
	mux.Handle("GET /api/storage/estimate", Wrap(ah.Estimate))
	mux.HandleFunc("GET /media/{key}", ah.Serve)

	// Pastry consultant endpoints
	mux.Handle("POST /api/suggest/ideas", Wrap(sh.Ideas))
	mux.HandleFunc("POST /api/suggest/inspiration", sh.Inspiration)

	// Order drafting
	mux.Handle("POST /api/order/draft", Wrap(oh.Draft))

	// Audit trail
	mux.Handle("GET /api/history", Wrap(histh.List))

	// Storefront and console pages
	mux.HandleFunc("GET /{$}", pages.Home)
	mux.HandleFunc("GET /menu", pages.Menu)
	mux.HandleFunc("GET /about", pages.About)
	mux.HandleFunc("GET /process", pages.Process)
	mux.HandleFunc("GET /order", pages.Order)
	mux.HandleFunc("GET /strategy", pages.Strategy)
	mux.Handle("GET /static/", web.Static())

	limiter := ratelimit.NewLimiter(120, time.Minute, 30)
	var h http.Handler = mux
	h = RateLimit(limiter)(h)
	h = LogRequests(h)
	return h
}

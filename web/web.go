// Package web renders the storefront pages and the Strategy console.
//
// Pages are server-rendered from embedded templates. Branded media slots
// resolve through the media resolver, so an uploaded asset, a legacy
// stored value and the remote default all render through the same path.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/thepatisserielane/studio/internal/media"
	"github.com/thepatisserielane/studio/internal/mediastore"
	"github.com/thepatisserielane/studio/internal/sitecfg"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Static serves the embedded stylesheet and any other static files.
func Static() http.Handler {
	return http.FileServerFS(staticFS)
}

// Remote defaults used until the owner uploads their own media.
const defaultHero = "https://images.unsplash.com/photo-1517433670267-08bbd4be890f?q=80&w=1920&auto=format&fit=crop"

var defaultReels = []string{
	"https://images.unsplash.com/photo-1576618148400-f54bed99fcfd?w=400",
	"https://images.unsplash.com/photo-1621303837174-89787a7d4729?w=400",
	"https://images.unsplash.com/photo-1557308535-44a140ba452c?w=400",
	"https://images.unsplash.com/photo-1535141192574-5d4897c12636?w=400",
}

// Pages renders the storefront and console pages.
type Pages struct {
	site     *sitecfg.Config
	resolver *media.Resolver
	store    *mediastore.Store
	tmpl     map[string]*template.Template
}

// New parses the embedded templates and returns the page renderer.
func New(site *sitecfg.Config, resolver *media.Resolver, store *mediastore.Store) (*Pages, error) {
	p := &Pages{
		site:     site,
		resolver: resolver,
		store:    store,
		tmpl:     map[string]*template.Template{},
	}
	funcs := template.FuncMap{
		"text": site.Text,
	}
	for _, name := range []string{"home", "menu", "about", "process", "order", "strategy"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		p.tmpl[name] = t
	}
	return p, nil
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, ok := p.tmpl[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Failed to render page", "page", name, "err", err)
	}
}

// productView is one catalog entry ready for the template.
type productView struct {
	sitecfg.Product
	Media template.HTML
}

func (p *Pages) productViews(r *http.Request, products []sitecfg.Product) []productView {
	views := make([]productView, 0, len(products))
	for _, prod := range products {
		views = append(views, productView{
			Product: prod,
			Media:   p.resolver.RenderHTML(r.Context(), prod.AssetKey(), prod.Image, prod.Name, "product-media"),
		})
	}
	return views
}

type reelView struct {
	Media template.HTML
}

// Home renders the landing page with hero, featured products and reels.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	catalog := p.site.ActiveCatalog()
	reels := make([]reelView, 0, len(defaultReels))
	for i, url := range defaultReels {
		key := fmt.Sprintf("reel_%d", i+1)
		reels = append(reels, reelView{
			Media: p.resolver.RenderHTML(r.Context(), key, url, fmt.Sprintf("Reel %d", i+1), "reel-media"),
		})
	}
	p.render(w, r, "home", map[string]any{
		"Hero":     p.resolver.RenderHTML(r.Context(), "brand_hero", defaultHero, "Bakery hero", "hero-media"),
		"Products": p.productViews(r, catalog.Products),
		"Reels":    reels,
	})
}

// Menu renders the full catalog grouped for browsing.
func (p *Pages) Menu(w http.ResponseWriter, r *http.Request) {
	catalog := p.site.ActiveCatalog()
	p.render(w, r, "menu", map[string]any{
		"Products": p.productViews(r, catalog.Products),
	})
}

// About renders the chef's story page.
func (p *Pages) About(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "about", map[string]any{
		"Portrait": p.resolver.RenderHTML(r.Context(), "brand_about", "", "About the chef", "about-media"),
	})
}

// Process renders the ordering process page.
func (p *Pages) Process(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "process", map[string]any{
		"Promo": p.resolver.RenderHTML(r.Context(), "asset_process_promo", "", "Process promo", "promo-media"),
	})
}

// Order renders the order form.
func (p *Pages) Order(w http.ResponseWriter, r *http.Request) {
	catalog := p.site.ActiveCatalog()
	p.render(w, r, "order", map[string]any{
		"Products": catalog.Products,
	})
}

// assetSlot is one manageable media slot in the console.
type assetSlot struct {
	Key    string
	Label  string
	Stored bool
}

// Strategy renders the owner console: copy editing, catalog management,
// media slots, storage usage and blueprint transfer.
func (p *Pages) Strategy(w http.ResponseWriter, r *http.Request) {
	catalog := p.site.ActiveCatalog()

	stored := map[string]bool{}
	if keys, err := p.store.Keys(r.Context(), ""); err == nil {
		for _, k := range keys {
			stored[k] = true
		}
	}

	slots := []assetSlot{
		{Key: "brand_logo", Label: "Brand Logo"},
		{Key: "brand_hero", Label: "Homepage Hero"},
		{Key: "brand_about", Label: "About Portrait"},
		{Key: "asset_process_promo", Label: "Process Promo"},
	}
	for i := range defaultReels {
		key := fmt.Sprintf("reel_%d", i+1)
		slots = append(slots, assetSlot{Key: key, Label: fmt.Sprintf("Reel %d", i+1)})
	}
	for _, prod := range catalog.Products {
		slots = append(slots, assetSlot{Key: prod.AssetKey(), Label: prod.Name})
	}
	for i := range slots {
		slots[i].Stored = stored[slots[i].Key]
	}

	est, estOK := p.store.Estimate()
	p.render(w, r, "strategy", map[string]any{
		"Products":   catalog.Products,
		"Categories": sitecfg.Categories(),
		"Recovered":  catalog.Recovered,
		"Reason":     catalog.Reason,
		"Text":       p.site.AllText(),
		"Overrides":  p.site.TextOverrides(),
		"Slots":      slots,
		"EstimateOK": estOK,
		"Estimate":   est,
		"ExportName": sitecfg.ExportFilename,
	})
}

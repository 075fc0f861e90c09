// Package sitecfg is the configuration store for editable site copy and
// the product catalog.
//
// Values live in the flat local store: text overrides one key at a time
// under "text_<key>", the catalog as a single JSON document under
// "custom_products". Absent an override, built-in defaults apply. Catalog
// edits are whole-collection overwrites; there is no per-field patching to
// reconcile.
package sitecfg

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maruel/ksid"
	"github.com/thepatisserielane/studio/internal/localstore"
)

// catalogKey holds the serialized catalog override in the local store.
const catalogKey = "custom_products"

// Category buckets products in the storefront menu.
type Category string

const (
	CategoryQuickPicks  Category = "Quick Picks"
	CategoryBentoStudio Category = "Bento Studio"
	CategoryCelebration Category = "Celebration Studio"
	CategorySeasonal    Category = "Seasonal Drops"
)

// Categories lists the menu buckets in display order.
func Categories() []Category {
	return []Category{CategoryQuickPicks, CategoryBentoStudio, CategoryCelebration, CategorySeasonal}
}

// Product is one catalog entry.
type Product struct {
	// ID is unique within the catalog and stable: it doubles as the basis
	// for the product's photo asset key.
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       int      `json:"price"` // whole currency units
	Category    Category `json:"category"`
	Description string   `json:"description"`
	// Image is the remote default photo URL, used when no upload overrides it.
	Image           string   `json:"image"`
	Features        []string `json:"features"`
	PreparationTime string   `json:"preparationTime"`
}

// AssetKey derives the media store key for this product's photo:
// "prod_" plus the ID with every non-alphanumeric byte replaced by an
// underscore.
func (p *Product) AssetKey() string {
	var b strings.Builder
	b.WriteString("prod_")
	for i := 0; i < len(p.ID); i++ {
		c := p.ID[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Validate checks the structural invariants a stored or imported product
// must satisfy.
func (p *Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	if p.Price < 0 {
		return fmt.Errorf("product %s: price must be non-negative", p.ID)
	}
	return nil
}

// validateCatalog checks every product and the catalog-wide ID uniqueness
// invariant.
func validateCatalog(products []Product) error {
	seen := make(map[string]struct{}, len(products))
	for i := range products {
		p := &products[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate product id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// defaultProducts is the built-in catalog served when no override exists.
var defaultProducts = []Product{
	{
		ID:              "vday-bento-kit",
		Name:            "DIY Bento Decoration Kit",
		Price:           350,
		Category:        CategoryBentoStudio,
		Description:     `The viral TikTok experience! Includes a blank 4" bento cake, 3 signature cream piping bags, and artisan sprinkles.`,
		Image:           "https://images.unsplash.com/photo-1535141192574-5d4897c12636?auto=format&fit=crop&q=80&w=800",
		Features:        []string{"Interactive DIY", "Everything Included"},
		PreparationTime: "Next Day Available",
	},
	{
		ID:              "korean-bento",
		Name:            "Signature Korean Bento",
		Price:           300,
		Category:        CategoryBentoStudio,
		Description:     "Minimalist, aesthetic, and delicious. Our signature 4-inch cake in a shell box.",
		Image:           "https://images.unsplash.com/photo-1519340333755-50721343aa52?auto=format&fit=crop&q=80&w=800",
		Features:        []string{"Custom Text", "Aesthetic"},
		PreparationTime: "24h Notice",
	},
	{
		ID:              "signature-rasmalai",
		Name:            "Artisanal Rasmalai Tub",
		Price:           220,
		Category:        CategoryQuickPicks,
		Description:     "Our fusion masterclass. Cardamom-infused sponge soaked in saffron milk.",
		Image:           "https://images.unsplash.com/photo-1551024601-bec78aea704b?auto=format&fit=crop&q=80&w=800",
		Features:        []string{"Best Seller", "Fusion"},
		PreparationTime: "Same Day",
	},
	{
		ID:              "cupcake-box",
		Name:            "Gourmet Cupcake Set",
		Price:           450,
		Category:        CategoryQuickPicks,
		Description:     "Box of 6 moist cupcakes. Belgian Chocolate, Red Velvet, and Classic Vanilla.",
		Image:           "https://images.unsplash.com/photo-1519869325930-281a2b753594?auto=format&fit=crop&q=80&w=800",
		Features:        []string{"Assorted", "100% Eggless"},
		PreparationTime: "24h Notice",
	},
	{
		ID:              "celebration-cake",
		Name:            "Bespoke Celebration Cake",
		Price:           1500,
		Category:        CategoryCelebration,
		Description:     "A masterpiece tailored to your theme. From minimalist designs to elaborate floral tiers.",
		Image:           "https://images.unsplash.com/photo-1578985545062-69928b1d9587?auto=format&fit=crop&q=80&w=800",
		Features:        []string{"Lavonne Standards", "Themed"},
		PreparationTime: "3-5 Days",
	},
	{
		ID:              "heart-cookies",
		Name:            "Royal Iced Cookies",
		Price:           150,
		Category:        CategorySeasonal,
		Description:     "Hand-painted butter cookies with intricate icing. Perfect small gift.",
		Image:           "https://images.unsplash.com/photo-1481391243133-f96216dcb5d2?auto=format&fit=crop&q=80&w=800",
		Features:        []string{"Hand-painted", "Eggless"},
		PreparationTime: "24h Notice",
	},
}

// DefaultProducts returns a copy of the built-in catalog.
func DefaultProducts() []Product {
	return cloneProducts(defaultProducts)
}

func cloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	for i := range out {
		if out[i].Features != nil {
			out[i].Features = append([]string(nil), out[i].Features...)
		}
	}
	return out
}

// Config reads and writes the editable site configuration.
type Config struct {
	local *localstore.Store
}

// New returns a Config persisting through the given local store.
func New(local *localstore.Store) *Config {
	return &Config{local: local}
}

// CatalogResult is the tagged outcome of [Config.ActiveCatalog]: either the
// stored override, the defaults because nothing is overridden, or the
// defaults recovered from a corrupt override.
type CatalogResult struct {
	Products []Product
	// Overridden is true when Products came from a stored override.
	Overridden bool
	// Recovered is true when a stored override existed but failed to
	// parse, and Products holds the built-in defaults instead.
	Recovered bool
	// Reason describes the parse failure when Recovered is set.
	Reason string
}

// ActiveCatalog returns the catalog the storefront should display.
//
// A corrupt override is logged and silently replaced with the defaults so
// the storefront stays usable; the tagged result lets the console tell
// "intentional defaults" apart from "override recovered".
func (c *Config) ActiveCatalog() CatalogResult {
	raw, ok := c.local.Get(catalogKey)
	if !ok {
		return CatalogResult{Products: DefaultProducts()}
	}
	var products []Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		slog.Warn("catalog override is corrupt, serving defaults", "err", err)
		return CatalogResult{Products: DefaultProducts(), Recovered: true, Reason: err.Error()}
	}
	if err := validateCatalog(products); err != nil {
		slog.Warn("catalog override is invalid, serving defaults", "err", err)
		return CatalogResult{Products: DefaultProducts(), Recovered: true, Reason: err.Error()}
	}
	return CatalogResult{Products: products, Overridden: true}
}

// ReplaceAll overwrites the entire catalog override atomically.
func (c *Config) ReplaceAll(products []Product) error {
	if err := validateCatalog(products); err != nil {
		return err
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return c.local.Set(catalogKey, string(data))
}

// AddNew appends a blank product with a fresh unique ID and persists the
// catalog, returning the created product.
func (c *Config) AddNew() (Product, error) {
	p := Product{
		ID:              "custom-" + ksid.NewID().String(),
		Name:            "New Product Name",
		Price:           0,
		Category:        CategoryQuickPicks,
		Description:     "Describe your new creation here...",
		Features:        []string{},
		PreparationTime: "24h",
	}
	active := c.ActiveCatalog()
	if err := c.ReplaceAll(append(active.Products, p)); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Remove deletes the product with the given ID, persisting the remaining
// catalog. Removing an absent ID is not an error.
func (c *Config) Remove(id string) error {
	active := c.ActiveCatalog()
	kept := active.Products[:0]
	for _, p := range active.Products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	return c.ReplaceAll(kept)
}

// ResetEverything removes every text override and the catalog override in
// one atomic batch, restoring factory defaults. Uploaded media is kept.
func (c *Config) ResetEverything() error {
	remove := []string{catalogKey}
	for key := range defaultSiteText {
		remove = append(remove, textKeyPrefix+key)
	}
	return c.local.Apply(nil, remove)
}

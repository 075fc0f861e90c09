// Built-in site copy and per-key text overrides.

package sitecfg

import (
	"errors"
	"strings"
)

// textKeyPrefix namespaces text overrides in the flat local store, keeping
// them apart from legacy media values stored under raw asset keys.
const textKeyPrefix = "text_"

// ErrUnknownTextKey is returned when a caller tries to override a text key
// that is not part of the site copy.
var ErrUnknownTextKey = errors.New("unknown text key")

// defaultSiteText is the built-in copy served when no override exists.
// The key set is fixed; the console edits values, never keys.
var defaultSiteText = map[string]string{
	// Hero section.
	"home_hero_title":   "Baking for Life's Sweetest Moments.",
	"home_hero_italic":  "Life's Sweetest",
	"home_hero_tagline": "Premium Artisanal Eggless",

	// About section.
	"about_title":     "Crafting Digital Sweetness.",
	"about_quote":     "Scaling up shouldn't mean losing the artisanal touch.",
	"about_content_1": "Founded by Adwita Mathur, The Patisserie Lane is a testament to the belief that eggless desserts can be just as decadent, structured, and beautiful as traditional ones.",
	"about_content_2": "After graduating from Lavonne Academy, Adwita set out to disrupt the home-baking scene in Bangalore. We leverage viral Reels to showcase the 'Behind the Scenes' of every creation.",

	// Stalls and events.
	"stalls_active":   "YES",
	"stalls_location": "Upcoming: Weekend Pop-up at Sarjapur Social",
	"stalls_date":     "This Saturday & Sunday | 11 AM - 9 PM",
	"stalls_cta":      "Visit our Stall",

	// Order section.
	"order_promo_title": "Place Your Order",
	"order_promo_desc":  "To manage our growing volume (now 5+ orders/day), we require a 10% advance to secure your slot.",

	// Process steps.
	"step_1_title": "Consultation",
	"step_1_desc":  "Browse our Studio collection or upload inspiration for a bespoke quote.",
	"step_2_title": "Confirmation",
	"step_2_desc":  "Secure your production slot with a small 10% advance payment.",
	"step_3_title": "Artisanal Prep",
	"step_3_desc":  "Adwita hand-crafts every element using premium, eggless ingredients.",
	"step_4_title": "Studio Pickup",
	"step_4_desc":  "Collect from our Sarjapur studio for maximum freshness.",

	// FAQs.
	"faq_1_q": "Is everything 100% eggless?",
	"faq_1_a": "Yes, our entire studio is a 100% vegetarian environment. We use professional-grade substitutes to ensure textures are identical to traditional pastries.",
	"faq_2_q": "How far in advance should I book?",
	"faq_2_a": "Bento cakes require 24-48 hours. Themed celebration cakes should be booked 3-5 days in advance to ensure slot availability.",
	"faq_3_q": "Do you offer delivery?",
	"faq_3_a": "We primarily recommend self-pickup from Sarjapur to ensure fragile cakes stay intact. We can arrange Dunzo/Porter at the customer's risk.",
	"faq_4_q": "Can I customize the flavor?",
	"faq_4_a": "Absolutely. Our most popular fusions include Rasmalai, Belgian Chocolate, and Zesty Lemon Blueberry.",

	// Contact info.
	"contact_address": "Sarjapur / Bellandur, Bengaluru, Karnataka",
	"contact_phone":   "+91 78292 31868",
	"contact_email":   "thepatisserielane@gmail.com",
	"contact_hours":   "9 AM — 8 PM",

	// Testimonials.
	"test_1_name": "Pooja Puri",
	"test_1_rev":  "The DIY Bento Kit was the highlight of our date night! So easy and tastes professional.",
	"test_2_name": "Srijan R.",
	"test_2_rev":  "Hands down the best eggless cakes in Sarjapur. The Rasmalai tubs are to die for!",
	"test_3_name": "Anita Sharma",
	"test_3_rev":  "Adwita is an artist. Her attention to detail is visible in every petal.",
}

// IsTextKey reports whether key is one of the editable site copy keys.
func IsTextKey(key string) bool {
	_, ok := defaultSiteText[key]
	return ok
}

// Text returns the override for key if one exists, else the built-in
// default. Unknown keys return the empty string. Never fails: a missing or
// unavailable store simply means "no override".
func (c *Config) Text(key string) string {
	if v, ok := c.local.Get(textKeyPrefix + key); ok {
		return v
	}
	return defaultSiteText[key]
}

// SetText writes a single override synchronously. The value itself is not
// validated.
func (c *Config) SetText(key, value string) error {
	if !IsTextKey(key) {
		return ErrUnknownTextKey
	}
	return c.local.Set(textKeyPrefix+key, value)
}

// TextOverrides returns only the keys that currently have an override.
// Keys at their built-in default are omitted, so a blueprint built from
// this map leaves them untouched on import.
func (c *Config) TextOverrides() map[string]string {
	overrides := map[string]string{}
	for _, k := range c.local.Keys(textKeyPrefix) {
		name := strings.TrimPrefix(k, textKeyPrefix)
		if !IsTextKey(name) {
			continue
		}
		if v, ok := c.local.Get(k); ok {
			overrides[name] = v
		}
	}
	return overrides
}

// AllText returns every copy slot with its effective value, overrides
// applied over defaults.
func (c *Config) AllText() map[string]string {
	out := make(map[string]string, len(defaultSiteText))
	for k := range defaultSiteText {
		out[k] = c.Text(k)
	}
	return out
}

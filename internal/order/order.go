// Package order turns a filled order form into a WhatsApp deep link.
//
// There is no checkout or payment flow. The storefront drafts the order
// as a chat message and hands the shopper off to WhatsApp, where the
// owner confirms the slot against a small advance.
package order

import (
	"fmt"
	"net/url"
	"strings"
)

// OwnerPhone is the bakery's WhatsApp number in international format
// without the leading plus, as wa.me expects it.
const OwnerPhone = "917829231868"

// Form holds the fields the shopper fills in before drafting an order.
type Form struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Date     string `json:"date"`
	Occasion string `json:"occasion"`
	Product  string `json:"product"`
	Flavor   string `json:"flavor"`
	Message  string `json:"message"`
	Delivery string `json:"delivery"`
}

// Validate checks the fields an order draft cannot do without.
func (f *Form) Validate() error {
	var missing []string
	if strings.TrimSpace(f.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(f.Product) == "" {
		missing = append(missing, "product")
	}
	if strings.TrimSpace(f.Date) == "" {
		missing = append(missing, "date")
	}
	if len(missing) != 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DraftMessage renders the chat message for the owner.
func (f *Form) DraftMessage() string {
	return "Hi Adwita! New digital order:" +
		"\n\U0001F464 Name: " + f.Name +
		"\n\U0001F370 Product: " + f.Product +
		"\n\U0001F4C5 Date: " + f.Date +
		"\n✨ Occasion: " + f.Occasion +
		"\n\U0001F963 Flavor: " + f.Flavor +
		"\n\U0001F48C Message: " + f.Message +
		"\n\nI am ready to pay the 10% advance to confirm!"
}

// DeepLink returns the wa.me URL that opens a prefilled chat with the
// owner.
func (f *Form) DeepLink() string {
	return "https://wa.me/" + OwnerPhone + "?text=" + url.QueryEscape(f.DraftMessage())
}

package order

import (
	"net/url"
	"strings"
	"testing"
)

func TestDraftMessage(t *testing.T) {
	f := Form{
		Name:     "Priya",
		Product:  "Korean Minimalist Bento",
		Date:     "2026-09-14",
		Occasion: "Anniversary",
		Flavor:   "Vanilla Bean",
		Message:  "Less sweet please",
	}
	got := f.DraftMessage()
	if !strings.HasPrefix(got, "Hi Adwita! New digital order:") {
		t.Fatalf("message = %q", got)
	}
	for _, want := range []string{
		"Name: Priya",
		"Product: Korean Minimalist Bento",
		"Date: 2026-09-14",
		"Occasion: Anniversary",
		"Flavor: Vanilla Bean",
		"Message: Less sweet please",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "I am ready to pay the 10% advance to confirm!") {
		t.Fatalf("message = %q", got)
	}
}

func TestDeepLink(t *testing.T) {
	f := Form{Name: "Priya", Product: "Heart Cookies", Date: "2026-09-14"}
	link := f.DeepLink()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "wa.me" || u.Path != "/"+OwnerPhone {
		t.Fatalf("link = %q", link)
	}
	if got := u.Query().Get("text"); got != f.DraftMessage() {
		t.Fatalf("text param = %q, want draft message", got)
	}
}

func TestValidate(t *testing.T) {
	t.Run("CompleteForm", func(t *testing.T) {
		f := Form{Name: "Priya", Product: "Heart Cookies", Date: "2026-09-14"}
		if err := f.Validate(); err != nil {
			t.Fatal(err)
		}
	})
	t.Run("MissingFieldsNamed", func(t *testing.T) {
		f := Form{Occasion: "Birthday"}
		err := f.Validate()
		if err == nil {
			t.Fatal("want error")
		}
		for _, field := range []string{"name", "product", "date"} {
			if !strings.Contains(err.Error(), field) {
				t.Errorf("error %q missing %q", err, field)
			}
		}
	})
}

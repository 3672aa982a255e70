package observability

import (
	"strings"
	"testing"
)

func TestSanitizeRouteStripsControlCharacters(t *testing.T) {
	got := SanitizeRoute("/cart\x00/items\x1b[31m")
	if got != "/cart/items[31m" {
		t.Fatalf("unexpected sanitized route %q", got)
	}
	if SanitizeRoute("") != "/" {
		t.Fatalf("expected empty route to log as /")
	}
}

func TestSanitizeRouteCapsLength(t *testing.T) {
	long := "/" + strings.Repeat("a", 400)
	if got := SanitizeRoute(long); len(got) != 180 {
		t.Fatalf("expected route capped at 180 runes, got %d", len(got))
	}
}

func TestSanitizeMethod(t *testing.T) {
	if got := SanitizeMethod("GE\x00T"); got != "GET" {
		t.Fatalf("unexpected sanitized method %q", got)
	}
	if got := SanitizeMethod("UNREASONABLYLONG"); got != "UNREASONAB" {
		t.Fatalf("expected method capped at 10 runes, got %q", got)
	}
}

func TestSanitizeUserID(t *testing.T) {
	if got := SanitizeUserID(""); got != "" {
		t.Fatalf("expected empty id to stay empty, got %q", got)
	}
	if got := SanitizeUserID(strings.Repeat("u", 100)); len(got) != 64 {
		t.Fatalf("expected id capped at 64 runes, got %d", len(got))
	}
}

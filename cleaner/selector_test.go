package cleaner

import (
	"strings"
	"testing"
)

func TestScopeContent_MatchesSelector(t *testing.T) {
	rawHTML := `<html><body><nav>menu</nav><main><p>body text</p></main></body></html>`

	scoped, err := ScopeContent(rawHTML, "main")
	if err != nil {
		t.Fatalf("ScopeContent returned error: %v", err)
	}
	if !strings.Contains(scoped, "body text") {
		t.Errorf("scoped HTML missing matched content: %q", scoped)
	}
	if strings.Contains(scoped, "menu") {
		t.Errorf("scoped HTML still contains unmatched content: %q", scoped)
	}
}

func TestScopeContent_NoMatchFallsBack(t *testing.T) {
	rawHTML := `<div><p>text</p></div>`

	scoped, err := ScopeContent(rawHTML, "article")
	if err != nil {
		t.Fatalf("ScopeContent returned error: %v", err)
	}
	if scoped != rawHTML {
		t.Errorf("scoped = %q, want original HTML when nothing matches", scoped)
	}
}

func TestScopeContent_InvalidSelector(t *testing.T) {
	if _, err := ScopeContent("<div></div>", "[[["); err == nil {
		t.Error("expected error for invalid selector")
	}
}

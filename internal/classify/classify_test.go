package classify

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"shopbot/internal/domain"
)

func testClassifier() *Classifier {
	return New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

var mugCatalog = []domain.Product{
	{Name: "Red Mug", Price: "$15.00"},
	{Name: "Blue Mug", Price: "$17.00"},
}

func TestClassifyOutOfScope(t *testing.T) {
	c := testClassifier()

	resp, err := c.Classify("OUT_OF_SCOPE", mugCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindOutOfScope {
		t.Errorf("kind = %s, want %s", resp.Kind, KindOutOfScope)
	}
	if resp.Text == "" || strings.Contains(resp.Text, "OUT_OF_SCOPE") {
		t.Errorf("expected friendly redirect, got %q", resp.Text)
	}
	if resp.SuggestedProduct != "" {
		t.Errorf("suggested product must be empty, got %q", resp.SuggestedProduct)
	}
}

func TestClassifyOutOfScopeSurroundingWhitespace(t *testing.T) {
	c := testClassifier()

	resp, err := c.Classify("  OUT_OF_SCOPE \n", mugCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindOutOfScope {
		t.Errorf("kind = %s, want %s", resp.Kind, KindOutOfScope)
	}
}

func TestClassifyAlternativeMatch(t *testing.T) {
	c := testClassifier()

	resp, err := c.Classify("ALTERNATIVE: Red Mug", mugCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindAlternative {
		t.Fatalf("kind = %s, want %s", resp.Kind, KindAlternative)
	}
	if resp.SuggestedProduct != "Red Mug" {
		t.Errorf("suggested = %q, want Red Mug", resp.SuggestedProduct)
	}
	if !strings.Contains(resp.Text, "Red Mug") || !strings.Contains(resp.Text, "$15.00") {
		t.Errorf("reply should name the product and price, got %q", resp.Text)
	}
}

func TestClassifyAlternativeUnknownProductFallsBack(t *testing.T) {
	c := testClassifier()

	resp, err := c.Classify("ALTERNATIVE: Purple Mug", mugCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindNormal {
		t.Errorf("kind = %s, want %s (fallback, no match)", resp.Kind, KindNormal)
	}
	if resp.Text != "ALTERNATIVE: Purple Mug" {
		t.Errorf("fallback should keep the trimmed answer verbatim, got %q", resp.Text)
	}
	if resp.SuggestedProduct != "" {
		t.Errorf("suggested product must be empty on fallback, got %q", resp.SuggestedProduct)
	}
}

func TestClassifyAlternativeEmptyNameFallsBack(t *testing.T) {
	c := testClassifier()

	resp, err := c.Classify("ALTERNATIVE:", mugCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindNormal {
		t.Errorf("kind = %s, want %s", resp.Kind, KindNormal)
	}
}

func TestClassifySignalMidSentenceIsNormal(t *testing.T) {
	c := testClassifier()

	for _, answer := range []string{
		"That question is OUT_OF_SCOPE for me.",
		"You could try the ALTERNATIVE: Red Mug instead.",
	} {
		resp, err := c.Classify(answer, mugCatalog)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Kind != KindNormal {
			t.Errorf("Classify(%q): kind = %s, want %s", answer, resp.Kind, KindNormal)
		}
		if resp.Text != answer {
			t.Errorf("Classify(%q): text = %q", answer, resp.Text)
		}
	}
}

func TestClassifyCaseSensitive(t *testing.T) {
	c := testClassifier()

	resp, err := c.Classify("out_of_scope", mugCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindNormal {
		t.Errorf("lowercased token must not match, got kind %s", resp.Kind)
	}
}

func TestClassifyNormal(t *testing.T) {
	c := testClassifier()

	resp, err := c.Classify("  The Red Mug costs $15.00.  ", mugCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindNormal {
		t.Errorf("kind = %s, want %s", resp.Kind, KindNormal)
	}
	if resp.Text != "The Red Mug costs $15.00." {
		t.Errorf("expected trimmed answer verbatim, got %q", resp.Text)
	}
}

func TestClassifyEmptyAnswer(t *testing.T) {
	c := testClassifier()

	for _, answer := range []string{"", "   ", "\n\t"} {
		_, err := c.Classify(answer, mugCatalog)
		if !errors.Is(err, ErrEmptyAnswer) {
			t.Errorf("Classify(%q): expected ErrEmptyAnswer, got %v", answer, err)
		}
	}
}

// Package classify inspects raw generator output for the two machine-readable
// fallback signals and produces the final user-facing reply.
package classify

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shopbot/internal/domain"
)

// Signal tokens the generator is instructed to emit verbatim as its entire
// reply. Matching is prefix-only on the trimmed answer and case-sensitive; a
// token appearing mid-sentence is ordinary text.
const (
	OutOfScopeToken   = "OUT_OF_SCOPE"
	AlternativePrefix = "ALTERNATIVE:"
)

const outOfScopeReply = "I can only help with questions about our products. " +
	"Is there anything in our store I can tell you about?"

// Kind tags how a reply was derived.
type Kind string

const (
	KindNormal      Kind = "normal"
	KindOutOfScope  Kind = "out-of-scope"
	KindAlternative Kind = "alternative"
)

// Response is the classified, final reply. SuggestedProduct is set if and
// only if Kind is KindAlternative and the product exists in the catalog.
type Response struct {
	Kind             Kind
	Text             string
	SuggestedProduct string
}

// ErrEmptyAnswer is returned when the generator produced a blank answer.
var ErrEmptyAnswer = errors.New("empty answer")

// Classifier turns raw generated text into a Response.
type Classifier struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify trims the raw answer and checks, in order, for the out-of-scope
// token and the alternative-signal prefix. An alternative naming a product
// not in the catalog is not an error: the whole answer is treated as normal
// text and a warning is logged, since the generator referenced a nonexistent
// item.
func (c *Classifier) Classify(rawAnswer string, catalog []domain.Product) (Response, error) {
	trimmed := strings.TrimSpace(rawAnswer)
	if trimmed == "" {
		return Response{}, ErrEmptyAnswer
	}

	if strings.HasPrefix(trimmed, OutOfScopeToken) {
		return Response{Kind: KindOutOfScope, Text: outOfScopeReply}, nil
	}

	if rest, ok := strings.CutPrefix(trimmed, AlternativePrefix); ok {
		name := strings.TrimSpace(rest)
		if p, found := lookup(catalog, name); found {
			return Response{
				Kind:             KindAlternative,
				Text:             fmt.Sprintf("We don't carry that exact item, but we do have %s for %s.", p.Name, p.Price),
				SuggestedProduct: p.Name,
			}, nil
		}
		c.logger.Warn("generator suggested a product not in the catalog", "suggested", name)
	}

	return Response{Kind: KindNormal, Text: trimmed}, nil
}

func lookup(catalog []domain.Product, name string) (domain.Product, bool) {
	if name == "" {
		return domain.Product{}, false
	}
	for _, p := range catalog {
		if p.Name == name {
			return p, true
		}
	}
	return domain.Product{}, false
}

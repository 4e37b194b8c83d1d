package provider

import (
	"fmt"
	"strings"

	"shopbot/internal/classify"
	"shopbot/internal/domain"
)

const systemInstruction = `You are a storefront assistant. Answer customer questions using ONLY the
product list below. Never invent products, prices, or stock information.
Keep answers short and friendly.`

const noProductsMarker = "(no products available)"

// BuildPrompt assembles the single grounding prompt sent to the generation
// service: system instruction, serialized catalog, the literal customer text,
// and the fallback-signal instructions.
func BuildPrompt(catalog []domain.Product, customerText string) string {
	var sb strings.Builder

	sb.WriteString(systemInstruction)
	sb.WriteString("\n\nProduct list:\n")

	if len(catalog) == 0 {
		sb.WriteString(noProductsMarker)
		sb.WriteString("\n")
	} else {
		for _, p := range catalog {
			fmt.Fprintf(&sb, "- %s (%s)\n", p.Name, p.Price)
		}
	}

	sb.WriteString("\nCustomer message:\n")
	sb.WriteString(customerText)

	sb.WriteString("\n\nIf the question is unrelated to the products, reply with exactly:\n")
	sb.WriteString(classify.OutOfScopeToken)
	sb.WriteString("\nIf the customer asks for a variant we do not carry but a close product\n")
	sb.WriteString("from the list exists, reply with exactly:\n")
	sb.WriteString(classify.AlternativePrefix)
	sb.WriteString(" <product name from the list>")

	return sb.String()
}

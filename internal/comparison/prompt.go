package comparison

import (
	"fmt"
	"strings"

	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
)

const systemPrompt = "You are a product comparison expert. Your task is to analyse and compare products in detail."

func buildPrompt(products []catalog.Product, preference string) (string, string) {
	var b strings.Builder
	b.WriteString("Compare the following products in detail:\n")
	for i, p := range products {
		fmt.Fprintf(&b, "\nProduct %d:\n- ID: %d\n- Name: %s\n- Current price: %d\n- Original price: %d\n- Category: %s\n- Description: %s\n",
			i+1, p.ID, p.Name, p.Price, p.OriginalPrice, p.Category, p.Description)
	}

	if preference = strings.TrimSpace(preference); preference != "" {
		fmt.Fprintf(&b, "\nThe user's preference or requirement: %s\n", preference)
	}

	b.WriteString(`
For each product provide:
1. The brand (taken from the product name)
2. A rating from 1 to 5 stars, estimated from the information and price
3. An overall score from 1 to 10
4. Up to 5 key features, taken from the description
5. Technical specs (weight, dimensions, battery life, connectivity... when the description mentions them)
6. An estimated warranty period
7. 3-5 pros
8. 2-3 cons
9. Who the product is best for

Also provide:
1. An overall comparison summary
2. A recommendation of which product to choose and why
3. The 3-4 most important decision factors

Return the result as JSON in this format:
{
  "products": [
    {
      "id": product_id,
      "name": "product name",
      "price": current_price,
      "originalPrice": original_price,
      "brand": "brand",
      "rating": rating,
      "score": score,
      "keyFeatures": ["feature 1", "feature 2"],
      "specs": {
        "weight": "weight",
        "dimensions": "dimensions",
        "batteryLife": "battery life",
        "connectivity": "connectivity"
      },
      "warranty": "warranty period",
      "pros": ["pro 1", "pro 2"],
      "cons": ["con 1", "con 2"],
      "bestFor": "best for",
      "buyUrl": "/products/detail?id=product_id"
    }
  ],
  "comparison": {
    "summary": "comparison summary",
    "recommendation": "recommendation",
    "comparisonPoints": [
      {"category": "decision factor", "description": "what to look for"}
    ]
  }
}`)
	return systemPrompt, b.String()
}

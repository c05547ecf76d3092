package similarity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
)

const systemPrompt = "You are a product analysis assistant. Your task is to find similar products based on the information provided."

// buildPrompt lists the source product and the numbered candidates. The
// generator answers with 1-based positions into candidates, not IDs.
func buildPrompt(source catalog.Product, candidates []catalog.Product, maxResults int) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is a product:\n")
	fmt.Fprintf(&b, "- Name: %s\n- Category: %s\n- Price: %d\n- Description: %s\n\n",
		source.Name, source.Category, source.Price, source.Description)

	fmt.Fprintf(&b, "Below is a numbered list of other products. Choose at most %d that are most similar to the product above:\n", maxResults)
	for i, p := range candidates {
		fmt.Fprintf(&b, "%d. Name: %s, Category: %s, Price: %d, Description: %s\n",
			i+1, p.Name, p.Category, p.Price, p.Description)
	}

	fmt.Fprintf(&b, "\nReturn the list numbers (positions in the list above) of the most similar products, most similar first, as JSON:\n")
	fmt.Fprintf(&b, "{\n  \"similarProductIds\": [position_1, position_2, position_3]\n}\n\n")
	b.WriteString("Return only JSON, without any explanation.")

	return systemPrompt, b.String()
}

// decodePositions maps the reply's positions back onto candidates.
// Non-integral, out-of-range and repeated positions are dropped; at most
// maxResults products are returned, in reply order.
func decodePositions(raw string, candidates []catalog.Product, maxResults int) ([]catalog.Product, error) {
	var reply struct {
		SimilarProductIDs json.RawMessage `json:"similarProductIds"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("%w: similarity reply is not a JSON object: %w", apperr.ErrUpstreamFormat, err)
	}

	var positions []any
	if len(reply.SimilarProductIDs) == 0 || json.Unmarshal(reply.SimilarProductIDs, &positions) != nil || positions == nil {
		return nil, fmt.Errorf("%w: similarProductIds missing or not an array", apperr.ErrUpstreamFormat)
	}

	out := make([]catalog.Product, 0, maxResults)
	seen := make(map[int]struct{}, len(positions))
	for _, v := range positions {
		if len(out) == maxResults {
			break
		}
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) || f < 1 || f > float64(len(candidates)) {
			continue
		}
		pos := int(f)
		if _, dup := seen[pos]; dup {
			continue
		}
		seen[pos] = struct{}{}
		out = append(out, candidates[pos-1])
	}
	return out, nil
}

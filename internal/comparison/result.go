package comparison

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
)

// Result is the comparison served to clients and cached. Product entries
// are kept exactly as the generator wrote them (id, name, price,
// originalPrice, brand, rating, score, keyFeatures, specs, warranty, pros,
// cons, bestFor, buyUrl by convention); only the overview is defaulted.
// Keys the generator adds beyond products and comparison survive in Extra.
type Result struct {
	Products   []json.RawMessage
	Comparison Overview
	Extra      map[string]json.RawMessage
}

type Overview struct {
	Summary          string
	Recommendation   string
	ComparisonPoints []ComparisonPoint
	Extra            map[string]json.RawMessage
}

type ComparisonPoint struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	products := r.Products
	if products == nil {
		products = []json.RawMessage{}
	}
	out := withExtra(r.Extra, 2)
	out["products"] = products
	out["comparison"] = r.Comparison
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Result{}
	if err := take(fields, "products", &r.Products); err != nil {
		return err
	}
	if err := take(fields, "comparison", &r.Comparison); err != nil {
		return err
	}
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

func (o Overview) MarshalJSON() ([]byte, error) {
	points := o.ComparisonPoints
	if points == nil {
		points = []ComparisonPoint{}
	}
	out := withExtra(o.Extra, 3)
	out["summary"] = o.Summary
	out["recommendation"] = o.Recommendation
	out["comparisonPoints"] = points
	return json.Marshal(out)
}

func (o *Overview) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*o = Overview{}
	for key, dst := range map[string]any{
		"summary":          &o.Summary,
		"recommendation":   &o.Recommendation,
		"comparisonPoints": &o.ComparisonPoints,
	} {
		if err := take(fields, key, dst); err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		o.Extra = fields
	}
	return nil
}

// Fallbacks applied when the generator leaves the overview incomplete.
// They keep the UI renderable and carry no information about the
// products.
const (
	DefaultSummary        = "Each of these products has its own strengths. Compare the details below to see which one fits you best."
	DefaultRecommendation = "Choose the product that best matches your needs and budget."
)

// DefaultComparisonPoints replaces a missing or malformed decision-factor
// list.
func DefaultComparisonPoints() []ComparisonPoint {
	return []ComparisonPoint{
		{Category: "Quality", Description: "Build quality and durability of each product."},
		{Category: "Price", Description: "Value for money at the current price."},
		{Category: "Features", Description: "Key features and how well they match your needs."},
	}
}

// parseResult validates the reply's top-level shape and applies the
// overview defaulting. Product entries only have to be JSON objects; their
// fields are passed through untouched.
func parseResult(raw string) (Result, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil || top == nil {
		return Result{}, fmt.Errorf("%w: comparison reply is not a JSON object", apperr.ErrUpstreamFormat)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(top["products"], &items); err != nil || len(items) == 0 {
		return Result{}, fmt.Errorf("%w: products must be a non-empty array", apperr.ErrUpstreamFormat)
	}
	for i, item := range items {
		if !bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			return Result{}, fmt.Errorf("%w: products[%d] is not an object", apperr.ErrUpstreamFormat, i)
		}
	}

	var overview map[string]json.RawMessage
	if err := json.Unmarshal(top["comparison"], &overview); err != nil || overview == nil {
		return Result{}, fmt.Errorf("%w: comparison object missing", apperr.ErrUpstreamFormat)
	}
	delete(top, "products")
	delete(top, "comparison")

	res := Result{
		Products: items,
		Comparison: Overview{
			Summary:          textOr(overview["summary"], DefaultSummary),
			Recommendation:   textOr(overview["recommendation"], DefaultRecommendation),
			ComparisonPoints: pointsOrDefault(overview["comparisonPoints"]),
		},
	}
	delete(overview, "summary")
	delete(overview, "recommendation")
	delete(overview, "comparisonPoints")
	if len(overview) > 0 {
		res.Comparison.Extra = overview
	}
	if len(top) > 0 {
		res.Extra = top
	}
	return res, nil
}

func textOr(raw json.RawMessage, fallback string) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func pointsOrDefault(raw json.RawMessage) []ComparisonPoint {
	var points []ComparisonPoint
	if err := json.Unmarshal(raw, &points); err != nil || len(points) == 0 {
		return DefaultComparisonPoints()
	}
	for _, p := range points {
		if strings.TrimSpace(p.Category) == "" || strings.TrimSpace(p.Description) == "" {
			return DefaultComparisonPoints()
		}
	}
	return points
}

func withExtra(extra map[string]json.RawMessage, known int) map[string]any {
	out := make(map[string]any, len(extra)+known)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// take decodes fields[key] into dst, if present, and removes it.
func take(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	delete(fields, key)
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

package assistant

import "strings"

func systemPrompt(productContext string) string {
	var b strings.Builder
	b.WriteString("You are a helpful shopping assistant for an affiliate website. ")
	b.WriteString("Your job is to help users find products that match their needs and give personalised recommendations.\n")
	if productContext != "" {
		b.WriteString("\nHere's some context about our available products:\n")
		b.WriteString(productContext)
		b.WriteString("\n")
	}
	b.WriteString(`
When showing product images:
- use the markdown format ![Product Name](URL)
- only use images of products in our catalog and never invent URLs
- if a requested image is unavailable, say so

Be friendly, conversational and helpful. If you don't know something, say so honestly.`)
	return b.String()
}

const imageNudge = "The user seems to be asking for product images. Include suitable product images from the catalog in markdown format."

var imageKeywords = []string{"image", "picture", "photo", "show me", "how does it look", "hình ảnh", "hình", "ảnh"}

func wantsImages(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range imageKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}

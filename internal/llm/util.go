package llm

import "strings"

// CleanJSONBlock strips a markdown code fence from a model response.
// Gemini wraps JSON output in ```json fences often enough that every
// JSON-mode caller runs its response through here first.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	body, fenced := strings.CutPrefix(text, "```")
	if !fenced {
		return text
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")

	// The fence line may carry a language tag ("json", "javascript").
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if tag == "" || (len(tag) < 20 && !strings.ContainsAny(tag, " {[")) {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

package llm

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// decodeJSON extracts the first JSON object from model output, tolerating
// markdown fences and surrounding prose.
func decodeJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no json object in model output")
	}
	return sonic.UnmarshalString(text[start:end+1], v)
}

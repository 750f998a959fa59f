package normalize

import (
	"encoding/json"
	"strings"
)

// Recover extracts a JSON object or array embedded in surrounding noise. The
// object span wins when it starts before the array span. It never panics and
// reports false when no span decodes.
func Recover(text string) (any, bool) {
	objStart := strings.Index(text, "{")
	objEnd := strings.LastIndex(text, "}")
	arrStart := strings.Index(text, "[")
	arrEnd := strings.LastIndex(text, "]")

	hasObject := objStart >= 0 && objEnd > objStart
	hasArray := arrStart >= 0 && arrEnd > arrStart

	var span string
	switch {
	case hasObject && (!hasArray || objStart < arrStart):
		span = text[objStart : objEnd+1]
	case hasArray:
		span = text[arrStart : arrEnd+1]
	default:
		return nil, false
	}

	var decoded any
	if err := json.Unmarshal([]byte(span), &decoded); err != nil {
		return nil, false
	}
	return decoded, true
}

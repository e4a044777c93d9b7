package output

import (
	"encoding/json"
	"fmt"

	"github.com/issuescout/issuescout/internal/core"
)

// JSONFormatter renders results as indented JSON.
type JSONFormatter struct{}

// Format renders a fetch result as JSON.
func (f *JSONFormatter) Format(result *core.FetchResult) (string, error) {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(encoded), nil
}

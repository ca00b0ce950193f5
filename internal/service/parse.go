package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"enclosure_gateway/internal/models"
)

// ParseTelemetry decodes one controller line. Only JSON objects are accepted;
// unknown keys are ignored and missing keys stay nil.
func ParseTelemetry(line string) (models.StateUpdate, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return models.StateUpdate{}, fmt.Errorf("%w: not a JSON object: %q", ErrParse, line)
	}
	var u models.StateUpdate
	if err := json.Unmarshal([]byte(trimmed), &u); err != nil {
		return models.StateUpdate{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return u, nil
}

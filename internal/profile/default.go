package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed default_profile.json
var defaultProfileJSON []byte

// Default returns a fresh copy of the bundled profile used by the seed tool.
func Default() (*Record, error) {
	var rec Record
	if err := json.Unmarshal(defaultProfileJSON, &rec); err != nil {
		return nil, fmt.Errorf("decode bundled profile: %w", err)
	}
	return &rec, nil
}

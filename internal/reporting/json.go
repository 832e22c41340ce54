package reporting

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// RenderJSON renders any report as indented JSON.
func RenderJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal report")
	}
	return string(data) + "\n", nil
}

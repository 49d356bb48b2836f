package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"gopkg.in/yaml.v3"
)

// JSON encodes the dataset summary as indented JSON.
func JSON(ds domain.Dataset) ([]byte, error) {
	data, err := json.MarshalIndent(ds.Summary(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode summary json: %w", err)
	}
	return append(data, '\n'), nil
}

// YAML encodes the dataset summary as YAML.
func YAML(ds domain.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ds.Summary()); err != nil {
		return nil, fmt.Errorf("encode summary yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode summary yaml: %w", err)
	}
	return buf.Bytes(), nil
}

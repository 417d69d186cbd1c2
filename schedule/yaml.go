package schedule

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/validation"
)

// Document is the YAML layout of a schedule file:
//
//	trips:
//	  - trip_id: "101"
//	    route_id: Local
//	    service_id: weekday
//	    stops:
//	      - stop_id: "70011"
//	        stop_sequence: 1
//	        arrival: "07:05:00"
//	        departure: "07:05:00"
type Document struct {
	Trips []Trip `yaml:"trips" json:"trips" validate:"dive"`
}

// LoadYAML reads a schedule document.
func LoadYAML(r io.Reader) (*Memory, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.Parse("schedule yaml", err)
	}
	if err := validation.Validate(doc); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(doc.Trips))
	for _, t := range doc.Trips {
		if seen[t.TripID] {
			return nil, errors.Validation(fmt.Sprintf("duplicate trip_id %q", t.TripID))
		}
		seen[t.TripID] = true
	}
	return NewMemory(doc.Trips...), nil
}

// LoadYAMLFile reads a schedule document from path.
func LoadYAMLFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule %s: %w", path, err)
	}
	return LoadYAML(bytes.NewReader(data))
}

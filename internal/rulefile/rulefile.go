// Package rulefile reads rule sets and scenario sets from YAML or JSON files.
package rulefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/fleetroad/pricingservice/internal/pricing"
)

// File is the document layout shared by rule files and scenario files.
type File struct {
	Rules     []pricing.PricingRule `json:"rules,omitempty"`
	Scenarios []Scenario            `json:"scenarios,omitempty"`
}

// Scenario is one named booking context with its pre-rule charges.
type Scenario struct {
	Name string `json:"name,omitempty"`
	pricing.BookingContext
	BasePrice      decimal.Decimal  `json:"basePrice"`
	DistanceCharge decimal.Decimal  `json:"distanceCharge"`
	TimeCharge     decimal.Decimal  `json:"timeCharge"`
	TaxRate        *decimal.Decimal `json:"taxRate,omitempty"`
}

// Request converts the scenario into an evaluation request.
func (s Scenario) Request() pricing.EvaluationRequest {
	return pricing.EvaluationRequest{
		Context: s.BookingContext,
		Charges: pricing.Charges{
			BasePrice:      s.BasePrice,
			DistanceCharge: s.DistanceCharge,
			TimeCharge:     s.TimeCharge,
		},
		TaxRate: s.TaxRate,
	}
}

// Requests converts every scenario in f.
func (f *File) Requests() []pricing.EvaluationRequest {
	reqs := make([]pricing.EvaluationRequest, len(f.Scenarios))
	for i, s := range f.Scenarios {
		reqs[i] = s.Request()
	}
	return reqs
}

// Load reads path, choosing the decoder by extension. Anything other than .json is YAML.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseJSON decodes a JSON document.
func ParseJSON(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode rule file: %w", err)
	}
	return &f, nil
}

// ParseYAML decodes a YAML document. It is re-encoded as JSON so rules and scenarios share
// one wire format regardless of the file type.
func ParseYAML(data []byte) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return &File{}, nil
	}

	tree, err := nodeValue(root.Content[0])
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode YAML: %w", err)
	}
	return ParseJSON(encoded)
}

// nodeValue converts a YAML node to JSON-compatible values. Timestamps stay as written so
// bare dates keep their whole-day meaning.
func nodeValue(n *yaml.Node) (interface{}, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]interface{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return m, nil
	case yaml.SequenceNode:
		s := make([]interface{}, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		return s, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!timestamp":
			return n.Value, nil
		case "!!int", "!!float":
			return json.Number(n.Value), nil
		}
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

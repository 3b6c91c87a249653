package detector

import (
	"fmt"
	"os"

	"github.com/aretw0/orderdesk/pkg/domain"
	"gopkg.in/yaml.v3"
)

type ruleDoc struct {
	Order   string   `yaml:"order"`
	Task    string   `yaml:"task"`
	Message string   `yaml:"message"`
	AllOf   []string `yaml:"all_of"`
}

type document struct {
	Rules []ruleDoc `yaml:"rules"`
}

// LoadFile reads detector rules from a YAML file.
func LoadFile(path string) (*Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detector rules %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a rules document of the form:
//
//	rules:
//	  - order: A
//	    task: track_a
//	    message: Track Order A Completed
//	    all_of: ["in transit", "expected|estimated"]
func Parse(data []byte) (*Detector, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse detector rules: %w", err)
	}
	rules := make([]Rule, 0, len(doc.Rules))
	for _, rd := range doc.Rules {
		if rd.Order == "" || rd.Task == "" {
			return nil, fmt.Errorf("detector: rule requires order and task")
		}
		r, err := NewRule(rd.Order, domain.Task(rd.Task), rd.Message, rd.AllOf...)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return New(rules...), nil
}

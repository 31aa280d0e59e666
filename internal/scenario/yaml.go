package scenario

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLParser reads scenarios of the form
//
//	name: demo
//	settle_delay: 150ms
//	captures:
//	  - name: main-menu
//	    command: ./demo
//	    interactions: ["press:down", "wait:0.5"]
type YAMLParser struct{}

func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

type yamlScenario struct {
	header   `yaml:",inline"`
	Captures []rawCapture `yaml:"captures"`
}

func (p *YAMLParser) Parse(r io.Reader) (*Scenario, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var doc yamlScenario
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return build(doc.header, doc.Captures)
}

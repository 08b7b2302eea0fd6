package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlexBool is a feature switch that accepts true/false, yes/no, on/off, 1/0 and quoted
// forms of each, so env-templated YAML can toggle rules.
type FlexBool bool

var flexWords = map[string]bool{
	"yes": true, "on": true, "enabled": true,
	"no": false, "off": false, "disabled": false,
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (fb *FlexBool) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: switch must be a scalar", value.Line)
	}
	raw := strings.ToLower(strings.TrimSpace(value.Value))
	if b, ok := flexWords[raw]; ok {
		*fb = FlexBool(b)
		return nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		*fb = FlexBool(b)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*fb = FlexBool(f != 0)
		return nil
	}
	return fmt.Errorf("line %d: cannot read %q as a switch", value.Line, value.Value)
}

// String renders the switch as on or off.
func (fb FlexBool) String() string {
	if fb {
		return "on"
	}
	return "off"
}

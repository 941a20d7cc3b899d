package device

import (
	"fmt"
	"strings"
)

// Selector picks elements out of a UI tree. Empty fields match anything; at
// least one field must be set for a selector to match at all.
type Selector struct {
	Label      string `yaml:"label,omitempty" json:"label,omitempty"`
	Identifier string `yaml:"identifier,omitempty" json:"identifier,omitempty"`
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
	Value      string `yaml:"value,omitempty" json:"value,omitempty"`
	Contains   bool   `yaml:"contains,omitempty" json:"contains,omitempty"` // substring match on label and value
}

// IsEmpty reports whether no criteria are set.
func (s Selector) IsEmpty() bool {
	return s.Label == "" && s.Identifier == "" && s.Type == "" && s.Value == ""
}

// Matches reports whether e satisfies every set criterion.
func (s Selector) Matches(e Element) bool {
	if s.IsEmpty() {
		return false
	}
	if s.Identifier != "" && e.Identifier != s.Identifier {
		return false
	}
	if s.Type != "" && !strings.EqualFold(e.Type, s.Type) {
		return false
	}
	if s.Label != "" && !s.text(e.Label, s.Label) {
		return false
	}
	if s.Value != "" && !s.text(e.Value, s.Value) {
		return false
	}
	return true
}

func (s Selector) text(have, want string) bool {
	if s.Contains {
		return strings.Contains(strings.ToLower(have), strings.ToLower(want))
	}
	return have == want
}

// Find returns the first match in depth-first order.
func (s Selector) Find(elements []Element) (Element, bool) {
	for _, e := range Flatten(elements) {
		if s.Matches(e) {
			return e, true
		}
	}
	return Element{}, false
}

func (s Selector) String() string {
	var parts []string
	if s.Identifier != "" {
		parts = append(parts, "identifier="+s.Identifier)
	}
	if s.Label != "" {
		parts = append(parts, "label="+s.Label)
	}
	if s.Type != "" {
		parts = append(parts, "type="+s.Type)
	}
	if s.Value != "" {
		parts = append(parts, "value="+s.Value)
	}
	if s.Contains {
		parts = append(parts, "contains")
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, " "))
}

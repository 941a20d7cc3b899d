package device

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Frame is an element's bounding box in logical points.
type Frame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the middle of the frame.
func (f Frame) Center() Point {
	return Point{X: f.X + f.Width/2, Y: f.Y + f.Height/2}
}

// Area returns width times height, zero for degenerate frames.
func (f Frame) Area() float64 {
	if f.Width <= 0 || f.Height <= 0 {
		return 0
	}
	return f.Width * f.Height
}

// Bottom returns the y coordinate of the lower edge.
func (f Frame) Bottom() float64 {
	return f.Y + f.Height
}

// Contains reports whether p lies inside the frame.
func (f Frame) Contains(p Point) bool {
	return p.X >= f.X && p.X <= f.X+f.Width && p.Y >= f.Y && p.Y <= f.Bottom()
}

// Element is one node of the accessibility tree.
type Element struct {
	Type       string    `json:"type"`
	Label      string    `json:"label,omitempty"`
	Identifier string    `json:"identifier,omitempty"`
	Value      string    `json:"value,omitempty"`
	Enabled    bool      `json:"enabled"`
	Frame      Frame     `json:"frame"`
	Children   []Element `json:"children,omitempty"`
}

// Flatten returns every element of the tree in depth-first order, without children.
func Flatten(elements []Element) []Element {
	var out []Element
	var walk func([]Element)
	walk = func(es []Element) {
		for _, e := range es {
			children := e.Children
			e.Children = nil
			out = append(out, e)
			walk(children)
		}
	}
	walk(elements)
	return out
}

// axElement mirrors one entry of `idb ui describe-all --json`.
type axElement struct {
	Type       string      `json:"type"`
	Role       string      `json:"role"`
	AXLabel    *string     `json:"AXLabel"`
	AXUniqueID *string     `json:"AXUniqueId"`
	AXValue    *string     `json:"AXValue"`
	Title      *string     `json:"title"`
	Enabled    *bool       `json:"enabled"`
	Frame      Frame       `json:"frame"`
	Children   []axElement `json:"children"`
}

func (a axElement) toElement() Element {
	e := Element{
		Type:       a.Type,
		Label:      deref(a.AXLabel),
		Identifier: deref(a.AXUniqueID),
		Value:      deref(a.AXValue),
		Enabled:    a.Enabled == nil || *a.Enabled,
		Frame:      a.Frame,
	}
	if e.Type == "" {
		e.Type = strings.TrimPrefix(a.Role, "AX")
	}
	if e.Label == "" {
		e.Label = deref(a.Title)
	}
	for _, c := range a.Children {
		e.Children = append(e.Children, c.toElement())
	}
	return e
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ParseDescribeAll decodes accessibility output, either a single JSON array or
// one JSON object per line.
func ParseDescribeAll(data []byte) ([]Element, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var raw []axElement
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse UI description: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var a axElement
			if err := json.Unmarshal(line, &a); err != nil {
				return nil, fmt.Errorf("failed to parse UI description line: %w", err)
			}
			raw = append(raw, a)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read UI description: %w", err)
		}
	}

	elements := make([]Element, 0, len(raw))
	for _, a := range raw {
		elements = append(elements, a.toElement())
	}
	return elements, nil
}

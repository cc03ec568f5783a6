package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Point is a position in canonical screen coordinates
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// UnmarshalYAML accepts a point as [x, y]
func (p *Point) UnmarshalYAML(node *yaml.Node) error {
	pt, err := decodePoint(node)
	if err != nil {
		return err
	}
	*p = pt
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (p Point) MarshalYAML() (interface{}, error) {
	return flowSeq(p.X, p.Y), nil
}

// Rect is a crop region in canonical screen coordinates
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// LocatorKind distinguishes the two kinds of concrete target
type LocatorKind int

const (
	LocatorNone LocatorKind = iota
	LocatorPoint
	LocatorSelector
)

// Locator is a resolved target: either a point or an element selector
type Locator struct {
	Kind     LocatorKind
	Point    Point
	Selector string
}

// PointLocator returns a Locator for p
func PointLocator(p Point) Locator {
	return Locator{Kind: LocatorPoint, Point: p}
}

// SelectorLocator returns a Locator for selector
func SelectorLocator(selector string) Locator {
	return Locator{Kind: LocatorSelector, Selector: selector}
}

// IsZero reports whether the locator is absent
func (l Locator) IsZero() bool {
	return l.Kind == LocatorNone
}

func (l Locator) String() string {
	switch l.Kind {
	case LocatorPoint:
		return l.Point.String()
	case LocatorSelector:
		return l.Selector
	default:
		return ""
	}
}

// UnmarshalYAML accepts [x, y] for a point or a scalar selector string
func (l *Locator) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		p, err := decodePoint(node)
		if err != nil {
			return err
		}
		*l = PointLocator(p)
	case yaml.ScalarNode:
		if node.Value == "" {
			return fmt.Errorf("line %d: empty selector", node.Line)
		}
		*l = SelectorLocator(node.Value)
	default:
		return fmt.Errorf("line %d: coordinate must be [x, y] or a selector string", node.Line)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (l Locator) MarshalYAML() (interface{}, error) {
	if l.Kind == LocatorPoint {
		return flowSeq(l.Point.X, l.Point.Y), nil
	}
	return l.Selector, nil
}

// RefKind distinguishes the forms a step target can take
type RefKind int

const (
	RefAbsent RefKind = iota
	RefPoint
	RefSelector
	RefName
)

// TargetRef is a step target as written: literal geometry, a literal
// selector, a symbolic name, or nothing.
type TargetRef struct {
	Kind     RefKind
	Point    Point
	Selector string
	Name     string
}

// NameRef returns a symbolic target reference
func NameRef(name string) TargetRef {
	return TargetRef{Kind: RefName, Name: name}
}

// PointRef returns a literal point target reference
func PointRef(x, y int) TargetRef {
	return TargetRef{Kind: RefPoint, Point: Point{X: x, Y: y}}
}

// SelectorRef returns a literal selector target reference
func SelectorRef(selector string) TargetRef {
	return TargetRef{Kind: RefSelector, Selector: selector}
}

// IsZero reports whether no target was given
func (t TargetRef) IsZero() bool {
	return t.Kind == RefAbsent
}

func (t TargetRef) String() string {
	switch t.Kind {
	case RefPoint:
		return t.Point.String()
	case RefSelector:
		return t.Selector
	case RefName:
		return t.Name
	default:
		return ""
	}
}

// UnmarshalYAML accepts [x, y] for a literal point or a scalar name
func (t *TargetRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		p, err := decodePoint(node)
		if err != nil {
			return err
		}
		*t = TargetRef{Kind: RefPoint, Point: p}
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*t = TargetRef{}
			return nil
		}
		*t = NameRef(node.Value)
	default:
		return fmt.Errorf("line %d: target must be [x, y] or a coordinate name", node.Line)
	}
	return nil
}

// CropRef is a crop as written: a literal rectangle, a symbolic name, or nothing
type CropRef struct {
	Rect *Rect
	Name string
}

// RectCrop returns a literal crop reference
func RectCrop(x, y, w, h int) CropRef {
	return CropRef{Rect: &Rect{X: x, Y: y, Width: w, Height: h}}
}

// NamedCrop returns a symbolic crop reference
func NamedCrop(name string) CropRef {
	return CropRef{Name: name}
}

// IsZero reports whether no crop was given
func (c CropRef) IsZero() bool {
	return c.Rect == nil && c.Name == ""
}

func (c CropRef) String() string {
	if c.Rect != nil {
		return c.Rect.String()
	}
	return c.Name
}

// UnmarshalYAML accepts [x, y, w, h], a mapping, or a scalar crop name
func (c *CropRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode, yaml.MappingNode:
		var r Rect
		if err := r.UnmarshalYAML(node); err != nil {
			return err
		}
		*c = CropRef{Rect: &r}
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*c = CropRef{}
			return nil
		}
		*c = NamedCrop(node.Value)
	default:
		return fmt.Errorf("line %d: crop must be [x, y, width, height] or a crop name", node.Line)
	}
	return nil
}

// UnmarshalYAML accepts [x, y, w, h] or {x, y, width, height}
func (r *Rect) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var vals []int
		if err := node.Decode(&vals); err != nil {
			return fmt.Errorf("line %d: crop values must be integers: %w", node.Line, err)
		}
		if len(vals) != 4 {
			return fmt.Errorf("line %d: crop needs 4 values [x, y, width, height], got %d", node.Line, len(vals))
		}
		*r = Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	case yaml.MappingNode:
		var raw struct {
			X      int `yaml:"x"`
			Y      int `yaml:"y"`
			Width  int `yaml:"width"`
			Height int `yaml:"height"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*r = Rect{X: raw.X, Y: raw.Y, Width: raw.Width, Height: raw.Height}
	default:
		return fmt.Errorf("line %d: crop must be [x, y, width, height]", node.Line)
	}
	if r.Empty() {
		return fmt.Errorf("line %d: crop %s has no area", node.Line, r)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (r Rect) MarshalYAML() (interface{}, error) {
	return flowSeq(r.X, r.Y, r.Width, r.Height), nil
}

func decodePoint(node *yaml.Node) (Point, error) {
	var vals []int
	if err := node.Decode(&vals); err != nil {
		return Point{}, fmt.Errorf("line %d: coordinates must be integers: %w", node.Line, err)
	}
	if len(vals) != 2 {
		return Point{}, fmt.Errorf("line %d: point needs 2 values [x, y], got %d", node.Line, len(vals))
	}
	return Point{X: vals[0], Y: vals[1]}, nil
}

func flowSeq(vals ...int) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range vals {
		seq.Content = append(seq.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: fmt.Sprintf("%d", v),
		})
	}
	return seq
}

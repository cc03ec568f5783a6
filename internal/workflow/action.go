package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"gopkg.in/yaml.v3"
)

// ActionKind is the closed set of actions a step can perform
type ActionKind int

const (
	ActionLaunch ActionKind = iota + 1
	ActionClick
	ActionType
	ActionWait
	ActionScreenshot
)

var actionNames = map[ActionKind]string{
	ActionLaunch:     "launch",
	ActionClick:      "click",
	ActionType:       "type",
	ActionWait:       "wait",
	ActionScreenshot: "screenshot",
}

// ParseActionKind converts an action name into an ActionKind
func ParseActionKind(s string) (ActionKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for kind, n := range actionNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errors.ErrUnknownAction, s)
}

func (a ActionKind) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// NeedsTarget reports whether the action requires a resolved target
func (a ActionKind) NeedsTarget() bool {
	return a == ActionClick || a == ActionType
}

// UnmarshalYAML implements yaml.Unmarshaler
func (a *ActionKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	kind, err := ParseActionKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*a = kind
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (a ActionKind) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// MarshalJSON implements json.Marshaler
func (a ActionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (a *ActionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseActionKind(s)
	if err != nil {
		return err
	}
	*a = kind
	return nil
}

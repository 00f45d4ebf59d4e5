package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ActionType of a primitive element action
type ActionType int8

const (
	// ActClick left clicks the element
	ActClick ActionType = iota + 1
	// ActType sends keystrokes to the element
	ActType
	// ActReadText reads the rendered text of the element
	ActReadText
	// ActReadAttribute reads a single attribute of the element
	ActReadAttribute
	// ActCustom runs a caller supplied function
	ActCustom
)

// ActionTypeMap for printing actions
var ActionTypeMap = map[ActionType]string{
	ActClick:         "click",
	ActType:          "type",
	ActReadText:      "read_text",
	ActReadAttribute: "read_attribute",
	ActCustom:        "custom",
}

// Action applied once to a located element. Actions have side effects and
// are never retried.
type Action interface {
	Type() ActionType
	Apply(ctx context.Context, el Element) error
	String() string
}

type clickAction struct{}

// Click the element
func Click() Action {
	return clickAction{}
}

func (clickAction) Type() ActionType { return ActClick }

func (clickAction) Apply(ctx context.Context, el Element) error {
	return el.Click(ctx)
}

func (clickAction) String() string { return ActionTypeMap[ActClick] }

type typeAction struct {
	text string
}

// Type sends text as keystrokes
func Type(text string) Action {
	return typeAction{text: text}
}

func (t typeAction) Type() ActionType { return ActType }

func (t typeAction) Apply(ctx context.Context, el Element) error {
	return el.SendKeys(ctx, t.text)
}

func (t typeAction) String() string {
	return fmt.Sprintf("%s(%d chars)", ActionTypeMap[ActType], len(t.text))
}

type readTextAction struct {
	dst *string
}

// ReadText stores the element's text in dst
func ReadText(dst *string) Action {
	return readTextAction{dst: dst}
}

func (r readTextAction) Type() ActionType { return ActReadText }

func (r readTextAction) Apply(ctx context.Context, el Element) error {
	text, err := el.Text(ctx)
	if err != nil {
		return err
	}
	*r.dst = strings.TrimSpace(text)
	return nil
}

func (r readTextAction) String() string { return ActionTypeMap[ActReadText] }

type readAttributeAction struct {
	name string
	dst  *string
}

// ReadAttribute stores the named attribute in dst, a missing attribute is an error
func ReadAttribute(name string, dst *string) Action {
	return readAttributeAction{name: name, dst: dst}
}

func (r readAttributeAction) Type() ActionType { return ActReadAttribute }

func (r readAttributeAction) Apply(ctx context.Context, el Element) error {
	value, ok, err := el.Attribute(ctx, r.name)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("attribute %q not present", r.name)
	}
	*r.dst = value
	return nil
}

func (r readAttributeAction) String() string {
	return fmt.Sprintf("%s(%s)", ActionTypeMap[ActReadAttribute], r.name)
}

type customAction struct {
	name string
	fn   func(ctx context.Context, el Element) error
}

// Custom action for anything the primitives do not cover
func Custom(name string, fn func(ctx context.Context, el Element) error) Action {
	return customAction{name: name, fn: fn}
}

func (c customAction) Type() ActionType { return ActCustom }

func (c customAction) Apply(ctx context.Context, el Element) error {
	return c.fn(ctx, el)
}

func (c customAction) String() string {
	return fmt.Sprintf("%s(%s)", ActionTypeMap[ActCustom], c.name)
}

package api

import (
	"encoding/json"

	"github.com/rhuss/respkit/pkg/codec"
)

// ActionType is the discriminator of a computer action.
type ActionType string

const (
	ActionClick       ActionType = "click"
	ActionDoubleClick ActionType = "double_click"
	ActionDrag        ActionType = "drag"
	ActionKeypress    ActionType = "keypress"
	ActionMove        ActionType = "move"
	ActionScreenshot  ActionType = "screenshot"
	ActionScroll      ActionType = "scroll"
	ActionTypeText    ActionType = "type"
	ActionWait        ActionType = "wait"
)

// ComputerAction is the action a computer call asks the caller to perform.
type ComputerAction interface {
	ActionType() ActionType
}

// Coordinate is a point on the screen.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ClickAction struct {
	Button MouseButton `json:"button"`
	X      int         `json:"x"`
	Y      int         `json:"y"`
}

func (*ClickAction) ActionType() ActionType { return ActionClick }

func (a ClickAction) MarshalJSON() ([]byte, error) {
	type alias ClickAction
	return codec.Encode(string(ActionClick), alias(a))
}

type DoubleClickAction struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (*DoubleClickAction) ActionType() ActionType { return ActionDoubleClick }

func (a DoubleClickAction) MarshalJSON() ([]byte, error) {
	type alias DoubleClickAction
	return codec.Encode(string(ActionDoubleClick), alias(a))
}

// DragAction drags the mouse along Path, starting at the first point.
type DragAction struct {
	Path []Coordinate `json:"path"`
}

func (*DragAction) ActionType() ActionType { return ActionDrag }

func (a DragAction) MarshalJSON() ([]byte, error) {
	type alias DragAction
	return codec.Encode(string(ActionDrag), alias(a))
}

// KeypressAction presses Keys together, as a chord.
type KeypressAction struct {
	Keys []string `json:"keys"`
}

func (*KeypressAction) ActionType() ActionType { return ActionKeypress }

func (a KeypressAction) MarshalJSON() ([]byte, error) {
	type alias KeypressAction
	return codec.Encode(string(ActionKeypress), alias(a))
}

type MoveAction struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (*MoveAction) ActionType() ActionType { return ActionMove }

func (a MoveAction) MarshalJSON() ([]byte, error) {
	type alias MoveAction
	return codec.Encode(string(ActionMove), alias(a))
}

type ScreenshotAction struct{}

func (*ScreenshotAction) ActionType() ActionType { return ActionScreenshot }

func (a ScreenshotAction) MarshalJSON() ([]byte, error) {
	type alias ScreenshotAction
	return codec.Encode(string(ActionScreenshot), alias(a))
}

// ScrollAction scrolls by ScrollX/ScrollY pixels with the pointer at X,Y.
type ScrollAction struct {
	X       int `json:"x"`
	Y       int `json:"y"`
	ScrollX int `json:"scroll_x"`
	ScrollY int `json:"scroll_y"`
}

func (*ScrollAction) ActionType() ActionType { return ActionScroll }

func (a ScrollAction) MarshalJSON() ([]byte, error) {
	type alias ScrollAction
	return codec.Encode(string(ActionScroll), alias(a))
}

// TypeAction types Text on the keyboard.
type TypeAction struct {
	Text string `json:"text"`
}

func (*TypeAction) ActionType() ActionType { return ActionTypeText }

func (a TypeAction) MarshalJSON() ([]byte, error) {
	type alias TypeAction
	return codec.Encode(string(ActionTypeText), alias(a))
}

type WaitAction struct{}

func (*WaitAction) ActionType() ActionType { return ActionWait }

func (a WaitAction) MarshalJSON() ([]byte, error) {
	type alias WaitAction
	return codec.Encode(string(ActionWait), alias(a))
}

// UnknownAction is a computer action this package does not know.
type UnknownAction struct {
	Type ActionType `json:"type,omitempty"`
}

func (a *UnknownAction) ActionType() ActionType { return a.Type }

var computerActions = func() *codec.Registry[ComputerAction] {
	r := codec.NewRegistry[ComputerAction]("computer_action", func(data []byte) (ComputerAction, error) {
		a := new(UnknownAction)
		return a, json.Unmarshal(data, a)
	})
	codec.Variant[ComputerAction, ClickAction](r, string(ActionClick), "button", "x", "y")
	codec.Variant[ComputerAction, DoubleClickAction](r, string(ActionDoubleClick), "x", "y")
	codec.Variant[ComputerAction, DragAction](r, string(ActionDrag), "path")
	codec.Variant[ComputerAction, KeypressAction](r, string(ActionKeypress), "keys")
	codec.Variant[ComputerAction, MoveAction](r, string(ActionMove), "x", "y")
	codec.Variant[ComputerAction, ScreenshotAction](r, string(ActionScreenshot))
	codec.Variant[ComputerAction, ScrollAction](r, string(ActionScroll), "x", "y", "scroll_x", "scroll_y")
	codec.Variant[ComputerAction, TypeAction](r, string(ActionTypeText), "text")
	codec.Variant[ComputerAction, WaitAction](r, string(ActionWait))
	return r
}()

// DecodeComputerAction decodes a single computer action.
func DecodeComputerAction(data []byte) (ComputerAction, error) {
	return computerActions.Decode(data)
}

package assignment

import "trajectory-builder/internal/geo"

// Node is a named location drawn as a marker in the scene.
type Node struct {
	ID        int          `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Loc       geo.Location `json:"loc" yaml:"loc"`
	PopupText *string      `json:"popupText,omitempty" yaml:"popupText"`
	Color     string       `json:"color,omitempty" yaml:"color"`
}

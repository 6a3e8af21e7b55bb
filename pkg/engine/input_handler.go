package engine

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// InputHandler tracks keyboard state between frames
type InputHandler struct {
	window       *glfw.Window
	watched      []glfw.Key
	currentKeys  map[glfw.Key]bool
	previousKeys map[glfw.Key]bool
}

// NewInputHandler creates an input handler polling the given keys
func NewInputHandler(window *glfw.Window, keys ...glfw.Key) *InputHandler {
	return &InputHandler{
		window:       window,
		watched:      keys,
		currentKeys:  make(map[glfw.Key]bool, len(keys)),
		previousKeys: make(map[glfw.Key]bool, len(keys)),
	}
}

// Update snapshots the key state; call once per frame after polling events
func (ih *InputHandler) Update() {
	ih.currentKeys, ih.previousKeys = ih.previousKeys, ih.currentKeys
	for _, key := range ih.watched {
		ih.currentKeys[key] = ih.window.GetKey(key) == glfw.Press
	}
}

// IsKeyPressed checks whether the key went down this frame
func (ih *InputHandler) IsKeyPressed(key glfw.Key) bool {
	return ih.currentKeys[key] && !ih.previousKeys[key]
}

// Package input collects SDL2 events into per-frame viewer input.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Frame is the input gathered during one frame.
type Frame struct {
	Quit bool

	Resized       bool
	Width, Height int

	MouseX, MouseY int32
	DragX, DragY   float32
	Wheel          float32
	Clicked        bool

	Pressed []sdl.Scancode
}

// WasPressed reports whether a key went down this frame.
func (f *Frame) WasPressed(key sdl.Scancode) bool {
	for _, k := range f.Pressed {
		if k == key {
			return true
		}
	}
	return false
}

// Input polls SDL and tracks held keys and buttons.
type Input struct {
	frame    Frame
	held     map[sdl.Scancode]bool
	dragging bool
}

// New creates an input handler.
func New() *Input {
	return &Input{held: make(map[sdl.Scancode]bool)}
}

// Poll drains the SDL event queue into a new Frame.
func (in *Input) Poll() *Frame {
	f := &in.frame
	pressed := f.Pressed[:0]
	*f = Frame{MouseX: f.MouseX, MouseY: f.MouseY, Pressed: pressed}

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			f.Quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				f.Resized = true
				f.Width, f.Height = int(e.Data1), int(e.Data2)
			}

		case *sdl.KeyboardEvent:
			key := e.Keysym.Scancode
			switch e.Type {
			case sdl.KEYDOWN:
				if e.Repeat == 0 {
					f.Pressed = append(f.Pressed, key)
				}
				in.held[key] = true
			case sdl.KEYUP:
				delete(in.held, key)
			}

		case *sdl.MouseMotionEvent:
			f.MouseX, f.MouseY = e.X, e.Y
			if in.dragging {
				f.DragX += float32(e.XRel)
				f.DragY += float32(e.YRel)
			}

		case *sdl.MouseButtonEvent:
			switch {
			case e.Button == sdl.BUTTON_RIGHT:
				in.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			case e.Button == sdl.BUTTON_LEFT && e.Type == sdl.MOUSEBUTTONDOWN:
				f.Clicked = true
				f.MouseX, f.MouseY = e.X, e.Y
			}

		case *sdl.MouseWheelEvent:
			f.Wheel += float32(e.Y)
		}
	}
	return f
}

// Held reports whether a key is down.
func (in *Input) Held(key sdl.Scancode) bool { return in.held[key] }

// Axis returns +1, -1 or 0 from a pair of held keys.
func (in *Input) Axis(positive, negative sdl.Scancode) float32 {
	var v float32
	if in.held[positive] {
		v++
	}
	if in.held[negative] {
		v--
	}
	return v
}

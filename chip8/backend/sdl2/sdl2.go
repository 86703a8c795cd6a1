//go:build sdl2

package sdl2

import (
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-chip8/chip8/backend"
	"github.com/valerio/go-chip8/chip8/input"
	"github.com/valerio/go-chip8/chip8/input/action"
	"github.com/valerio/go-chip8/chip8/input/event"
	"github.com/valerio/go-chip8/chip8/video"
)

const (
	defaultScale  = 10
	bytesPerPixel = 4

	// RGBA8888 is stored as ABGR bytes on little-endian machines
	pixelOn  = 0xFFFFFFFF
	pixelOff = 0x000000FF
)

// Backend implements the Backend interface using SDL2 bindings
// Note: building this requires SDL2 development libraries installed.
// Default builds skip this and use a stubbed renderer, see build tags (sdl2)
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	running  bool
	config   backend.BackendConfig
	pixels   []byte
	events   []backend.InputEvent
}

var _ backend.Backend = (*Backend)(nil)

// New creates a new SDL2 backend
func New() *Backend {
	return &Backend{}
}

// Init initializes the SDL2 backend
func (s *Backend) Init(config backend.BackendConfig) error {
	s.config = config
	scale := config.Scale
	if scale <= 0 {
		scale = defaultScale
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %w", err)
	}

	window, err := sdl.CreateWindow(
		config.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(video.FramebufferWidth*scale),
		int32(video.FramebufferHeight*scale),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("failed to create window: %w", err)
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING,
		video.FramebufferWidth,
		video.FramebufferHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create texture: %w", err)
	}
	s.texture = texture

	s.pixels = make([]byte, video.FramebufferSize*bytesPerPixel)
	s.running = true

	slog.Info("SDL2 backend initialized", "scale", scale)
	return nil
}

// Update renders a frame and processes events
func (s *Backend) Update(frame video.Frame) ([]backend.InputEvent, error) {
	s.events = s.events[:0]

	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		s.handleEvent(ev)
	}

	events := append([]backend.InputEvent(nil), s.events...)
	if !s.running {
		return events, nil
	}

	if err := s.renderFrame(frame); err != nil {
		return events, err
	}
	return events, nil
}

// Cleanup cleans up SDL2 resources
func (s *Backend) Cleanup() error {
	slog.Info("Cleaning up SDL2 backend")

	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()

	return nil
}

func (s *Backend) handleEvent(ev sdl.Event) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		s.running = false
		s.events = append(s.events, backend.QuitEvent)

	case *sdl.KeyboardEvent:
		act, ok := mapKey(e.Keysym.Sym)
		if !ok {
			return
		}
		_, isKey := act.Keypad()

		switch {
		case e.Type == sdl.KEYDOWN && e.Repeat != 0:
			if isKey {
				s.events = append(s.events, backend.InputEvent{Action: act, Type: event.Hold})
			}
		case e.Type == sdl.KEYDOWN:
			if act == action.EmulatorQuit {
				s.running = false
			}
			s.events = append(s.events, backend.InputEvent{Action: act, Type: event.Press})
		case e.Type == sdl.KEYUP && isKey:
			s.events = append(s.events, backend.InputEvent{Action: act, Type: event.Release})
		}
	}
}

// mapKey looks up an SDL key in the default key map. SDL names letters in
// upper case, the key map uses lower case.
func mapKey(key sdl.Keycode) (action.Action, bool) {
	name := sdl.GetKeyName(key)
	if len(name) == 1 {
		name = strings.ToLower(name)
	}
	return input.GetDefaultMapping(name)
}

func (s *Backend) renderFrame(frame video.Frame) error {
	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			value := uint32(pixelOff)
			if frame.Pixel(x, y) {
				value = pixelOn
			}

			idx := (y*video.FramebufferWidth + x) * bytesPerPixel
			s.pixels[idx] = byte(value)
			s.pixels[idx+1] = byte(value >> 8)
			s.pixels[idx+2] = byte(value >> 16)
			s.pixels[idx+3] = byte(value >> 24)
		}
	}

	if err := s.texture.Update(nil, unsafe.Pointer(&s.pixels[0]), video.FramebufferWidth*bytesPerPixel); err != nil {
		return fmt.Errorf("failed to update texture: %w", err)
	}

	s.renderer.SetDrawColor(0, 0, 0, 0xFF)
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
	return nil
}

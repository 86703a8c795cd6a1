package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-chip8/chip8/backend"
	"github.com/valerio/go-chip8/chip8/backend/terminal/render"
	"github.com/valerio/go-chip8/chip8/input"
	"github.com/valerio/go-chip8/chip8/input/action"
	"github.com/valerio/go-chip8/chip8/input/event"
	"github.com/valerio/go-chip8/chip8/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	// two pixel rows per terminal cell, plus a border on each side
	minTermWidth  = width + 2
	minTermHeight = height/2 + 2

	logPanelMinWidth = 20
	logBufferSize    = 100
)

// Key expiry timeout. Terminals report key repeats but never key releases, so
// a key is considered held while repeats keep arriving.
const keyTimeout = 150 * time.Millisecond

// Backend implements the Backend interface using tcell for terminal rendering
type Backend struct {
	screen     tcell.Screen
	running    bool
	logBuffer  *render.LogBuffer
	logLevel   slog.Level
	config     backend.BackendConfig
	eventQueue []backend.InputEvent

	keyStates  map[action.Action]time.Time // Last time each keypad key was seen
	activeKeys map[action.Action]bool      // Keys active in previous frame

	signals chan os.Signal
	now     func() time.Time

	// default logger before Init took over, restored by Cleanup
	previousLogger *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// New creates a terminal backend drawing to the process terminal.
func New() *Backend {
	return &Backend{
		logLevel: slog.LevelInfo,
		now:      time.Now,
	}
}

// NewWithScreen creates a terminal backend drawing to the given screen.
func NewWithScreen(screen tcell.Screen) *Backend {
	b := New()
	b.screen = screen
	return b
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.BackendConfig) error {
	t.config = config
	t.eventQueue = nil
	t.keyStates = make(map[action.Action]time.Time)
	t.activeKeys = make(map[action.Action]bool)

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	t.running = true

	// Anything written to stderr would corrupt the screen, keep logs in a panel instead
	t.logBuffer = render.NewLogBuffer(logBufferSize)
	t.previousLogger = slog.Default()
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.signals = make(chan os.Signal, 1)
	signal.Notify(t.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	slog.Info("Terminal backend initialized", "title", config.Title)
	return nil
}

// Update renders a frame and processes events
func (t *Backend) Update(frame video.Frame) ([]backend.InputEvent, error) {
	now := t.now()

	select {
	case sig := <-t.signals:
		slog.Info("Received signal, shutting down", "signal", sig)
		t.quit()
	default:
	}

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.keypadEvents(now)
	events = append(events, t.eventQueue...)
	t.eventQueue = nil

	if !t.running {
		return events, nil
	}

	t.render(frame)
	t.screen.Show()

	return events, nil
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.signals != nil {
		signal.Stop(t.signals)
	}
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	if t.previousLogger != nil {
		slog.SetDefault(t.previousLogger)
		t.previousLogger = nil
	}
	return nil
}

func (t *Backend) quit() {
	t.running = false
	t.eventQueue = append(t.eventQueue, backend.QuitEvent)
}

// keypadEvents turns the tracked key timestamps into Press, Hold and Release events.
func (t *Backend) keypadEvents(now time.Time) []backend.InputEvent {
	var events []backend.InputEvent
	currentlyActive := make(map[action.Action]bool)

	for act, lastPressed := range t.keyStates {
		if now.Sub(lastPressed) >= keyTimeout {
			delete(t.keyStates, act)
			continue
		}

		currentlyActive[act] = true
		if t.activeKeys[act] {
			events = append(events, backend.InputEvent{Action: act, Type: event.Hold})
		} else {
			slog.Debug("Key press", "action", act)
			events = append(events, backend.InputEvent{Action: act, Type: event.Press})
		}
	}

	for act := range t.activeKeys {
		if !currentlyActive[act] {
			slog.Debug("Key release", "action", act)
			events = append(events, backend.InputEvent{Action: act, Type: event.Release})
		}
	}

	t.activeKeys = currentlyActive
	return events
}

// tcellKeyNameMap converts tcell keys to key names used in default mappings
var tcellKeyNameMap = map[tcell.Key]string{
	tcell.KeyEscape:     "Escape",
	tcell.KeyBackspace:  "Backspace",
	tcell.KeyBackspace2: "Backspace",
}

// keyName returns the name used by input.DefaultKeyMap for a key event.
func keyName(ev *tcell.EventKey) (string, bool) {
	if ev.Key() != tcell.KeyRune {
		name, ok := tcellKeyNameMap[ev.Key()]
		return name, ok
	}
	if ev.Rune() == ' ' {
		return "Space", true
	}
	return strings.ToLower(string(ev.Rune())), true
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	if ev.Key() == tcell.KeyCtrlC {
		t.quit()
		return
	}

	name, ok := keyName(ev)
	if !ok {
		return
	}
	act, ok := input.GetDefaultMapping(name)
	if !ok {
		return
	}

	if _, isKey := act.Keypad(); isKey {
		t.keyStates[act] = now
		return
	}

	if act == action.EmulatorQuit {
		t.quit()
		return
	}
	t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: act, Type: event.Press})
}

func (t *Backend) render(frame video.Frame) {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, style)
		return
	}

	t.drawBorder()
	t.drawScreen(frame)

	logsX := minTermWidth + 1
	if termWidth-logsX >= logPanelMinWidth {
		t.drawLogs(logsX, 0, termWidth-logsX, termHeight)
	}
}

func (t *Backend) drawBorder() {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	right, bottom := minTermWidth-1, minTermHeight-1

	for x := 1; x < right; x++ {
		t.screen.SetContent(x, 0, '─', nil, style)
		t.screen.SetContent(x, bottom, '─', nil, style)
	}
	for y := 1; y < bottom; y++ {
		t.screen.SetContent(0, y, '│', nil, style)
		t.screen.SetContent(right, y, '│', nil, style)
	}
	t.screen.SetContent(0, 0, '┌', nil, style)
	t.screen.SetContent(right, 0, '┐', nil, style)
	t.screen.SetContent(0, bottom, '└', nil, style)
	t.screen.SetContent(right, bottom, '┘', nil, style)

	if t.config.Title != "" {
		t.drawText(2, 0, right-3, " "+t.config.Title+" ", tcell.StyleDefault.Foreground(tcell.ColorYellow))
	}
}

func (t *Backend) drawScreen(frame video.Frame) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			char := render.HalfBlock(frame.Pixel(x, y), frame.Pixel(x, y+1))
			t.screen.SetContent(x+1, y/2+1, char, nil, style)
		}
	}
}

func (t *Backend) drawLogs(startX, startY, panelWidth, termHeight int) {
	available := termHeight - startY
	if available <= 0 {
		return
	}

	styles := map[slog.Level]tcell.Style{
		slog.LevelDebug: tcell.StyleDefault.Foreground(tcell.ColorGray),
		slog.LevelInfo:  tcell.StyleDefault.Foreground(tcell.ColorBlue),
		slog.LevelWarn:  tcell.StyleDefault.Foreground(tcell.ColorYellow),
		slog.LevelError: tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	}

	row := 0
	for _, entry := range t.logBuffer.GetRecent(0) {
		if row >= available {
			break
		}
		if entry.Level < t.logLevel {
			continue
		}

		text := render.FormatLogEntry(entry)
		if len(text) > panelWidth && panelWidth > 3 {
			text = text[:panelWidth-3] + "..."
		}
		t.drawText(startX, startY+row, panelWidth, text, styles[entry.Level])
		row++
	}
}

func (t *Backend) drawText(x, y, maxWidth int, text string, style tcell.Style) {
	col := 0
	for _, ch := range text {
		if col >= maxWidth {
			return
		}
		t.screen.SetContent(x+col, y, ch, nil, style)
		col++
	}
}

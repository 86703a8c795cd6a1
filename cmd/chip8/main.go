package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/valerio/go-chip8/chip8"
	"github.com/valerio/go-chip8/chip8/backend"
	"github.com/valerio/go-chip8/chip8/backend/headless"
	"github.com/valerio/go-chip8/chip8/backend/sdl2"
	"github.com/valerio/go-chip8/chip8/backend/terminal"
	"github.com/valerio/go-chip8/chip8/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "chip8"
	app.Description = "A CHIP-8 interpreter"
	app.Usage = "chip8 [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "cycles",
			Usage: "Instructions executed per 60 Hz frame",
			Value: chip8.DefaultConfig().CyclesPerFrame,
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save PNG frame snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "sdl2",
			Usage: "Use the SDL2 window backend (requires a build with -tags sdl2)",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window pixels per CHIP-8 pixel for the SDL2 backend",
			Value: 10,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			_ = cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().Get(0)
	}

	emu, err := chip8.NewWithFile(romPath, chip8.Config{CyclesPerFrame: c.Int("cycles")})
	if err != nil {
		return err
	}

	b, limiter, err := selectBackend(c, romPath)
	if err != nil {
		return err
	}

	config := backend.BackendConfig{
		Title: filepath.Base(romPath),
		Scale: c.Int("scale"),
	}
	return chip8.Run(emu, b, config, limiter)
}

func selectBackend(c *cli.Context, romPath string) (backend.Backend, timing.Limiter, error) {
	switch {
	case c.Bool("headless"):
		frames := c.Int("frames")
		if frames <= 0 {
			return nil, nil, errors.New("headless mode requires --frames option with a positive value")
		}
		snapshots, err := headless.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
		if err != nil {
			return nil, nil, err
		}
		return headless.New(frames, snapshots), timing.NewNoOpLimiter(), nil

	case c.Bool("sdl2"):
		return sdl2.New(), timing.NewAdaptiveLimiter(), nil

	default:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, fmt.Errorf("stdout is not a terminal, use --headless or --sdl2")
		}
		return terminal.New(), timing.NewTickerLimiter(), nil
	}
}

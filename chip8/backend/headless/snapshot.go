package headless

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/valerio/go-chip8/chip8/video"
)

// SaveFramePNG writes the frame as a black and white PNG named baseName.png
// inside directory, and returns the file path.
func SaveFramePNG(frame video.Frame, baseName, directory string) (string, error) {
	img := image.NewGray(image.Rect(0, 0, frame.Width(), frame.Height()))
	for y := 0; y < frame.Height(); y++ {
		for x := 0; x < frame.Width(); x++ {
			if frame.Pixel(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0xFF})
			}
		}
	}

	filePath := filepath.Join(directory, baseName+".png")
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return filePath, nil
}

// SaveFrameText writes the frame as text, one line per row, named baseName.txt
// inside directory, and returns the file path.
func SaveFrameText(frame video.Frame, baseName, directory string) (string, error) {
	filePath := filepath.Join(directory, baseName+".txt")
	if err := os.WriteFile(filePath, []byte(video.Render(frame, '█', '.')), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	return filePath, nil
}

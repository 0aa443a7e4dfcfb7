package render

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
)

// SaveScreenshot reads back the framebuffer and writes it to path as png.
func (r *Renderer) SaveScreenshot(path string) error {
	img, err := r.backend.Screenshot()
	if err != nil {
		return fmt.Errorf("read framebuffer: %w", err)
	}

	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create screenshot file: %w", err)
	}

	defer func() {
		_ = fp.Close()
	}()

	if err := png.Encode(fp, img); err != nil {
		return fmt.Errorf("encode screenshot: %w", err)
	}

	slog.Info("Screenshot saved",
		slog.String("path", path),
		slog.Int("width", img.Rect.Dx()),
		slog.Int("height", img.Rect.Dy()))

	return nil
}

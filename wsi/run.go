package wsi

import (
	"log/slog"

	"github.com/oliverbestmann/treads/render"
)

// Run drives the frame loop of a renderer attached to a window. Every frame
// it propagates window resizes, opens the frame, calls the game callback
// and submits the frame.
func Run(window Window, renderer *render.Renderer, frame func(input InputState) error) error {
	return window.Run(func(input InputState) error {
		width, height := window.Size()

		if vw, vh := renderer.Viewport(); vw != width || vh != height {
			slog.Debug("Resize surface",
				slog.Int("width", width),
				slog.Int("height", height),
			)

			renderer.SetViewport(width, height)
		}

		renderer.BeginFrame()

		if err := frame(input); err != nil {
			return err
		}

		renderer.EndFrame()

		return nil
	})
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/gateway"
	"github.com/lazypower/starfield/internal/layout"
	"github.com/lazypower/starfield/internal/render"
	"github.com/lazypower/starfield/internal/scene"
)

type renderOptions struct {
	Format   string
	Width    int
	Height   int
	Scale    float64
	TX, TY   float64
	Selected string
}

var (
	renderOut  string
	renderOpts renderOptions
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the starfield to an SVG or PNG file",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := resolveUser()
		if err != nil {
			return err
		}
		src, err := newGraphSource(cfg, localFlag, zap.NewNop())
		if err != nil {
			return err
		}
		defer src.Close()

		opts := renderOpts
		if opts.Width == 0 {
			opts.Width = cfg.View.Width
		}
		if opts.Height == 0 {
			opts.Height = cfg.View.Height
		}
		if opts.Format == "" {
			opts.Format = formatFor(renderOut)
		}

		var w io.Writer = cmd.OutOrStdout()
		if renderOut != "-" {
			f, err := os.Create(renderOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", renderOut, err)
			}
			defer f.Close()
			w = f
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		frame, err := renderStarfield(ctx, src, user, layout.New(cfg.Layout), cfg.View.Zoom, opts, w)
		if err != nil {
			return err
		}
		if renderOut != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s (%d stars)\n", good.Sprint("wrote"), renderOut, len(frame.Nodes))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "starfield.svg", "output file, - for stdout")
	renderCmd.Flags().StringVar(&renderOpts.Format, "format", "", "svg or png (default: from the file extension)")
	renderCmd.Flags().IntVar(&renderOpts.Width, "width", 0, "canvas width (default from config)")
	renderCmd.Flags().IntVar(&renderOpts.Height, "height", 0, "canvas height (default from config)")
	renderCmd.Flags().Float64Var(&renderOpts.Scale, "scale", 1, "zoom scale")
	renderCmd.Flags().Float64Var(&renderOpts.TX, "tx", 0, "horizontal pan")
	renderCmd.Flags().Float64Var(&renderOpts.TY, "ty", 0, "vertical pan")
	renderCmd.Flags().StringVar(&renderOpts.Selected, "selected", "", "concept id or name to highlight")
}

func formatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return "png"
	}
	return "svg"
}

// renderStarfield fetches the graph, lays it out and writes one frame.
func renderStarfield(ctx context.Context, gw gateway.Gateway, user string, engine *layout.Engine, zoom scene.Zoom, opts renderOptions, w io.Writer) (scene.Frame, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return scene.Frame{}, fmt.Errorf("invalid canvas %dx%d", opts.Width, opts.Height)
	}
	snap, err := gw.FetchGraph(ctx, user)
	if err != nil {
		return scene.Frame{}, fmt.Errorf("fetch graph: %w", err)
	}

	v := scene.NewView(engine, float64(opts.Width), float64(opts.Height), zoom)
	v.ApplyGraph(v.BeginLoad(), snap)
	v.Viewport.SetScale(opts.Scale)
	v.Viewport.TranslateX, v.Viewport.TranslateY = opts.TX, opts.TY
	if opts.Selected != "" && !v.Select(opts.Selected) {
		for _, n := range v.Nodes() {
			if strings.EqualFold(n.Name, opts.Selected) {
				v.Select(n.ID)
				break
			}
		}
	}

	frame := v.Frame()
	switch opts.Format {
	case "png":
		err = render.PNG(w, frame)
	case "svg", "":
		err = render.SVG(w, frame)
	default:
		return frame, fmt.Errorf("unknown format %q", opts.Format)
	}
	return frame, err
}

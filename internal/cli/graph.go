package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/graph"
)

var graphJSON bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "List the concepts in your graph",
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

		ctx, cancel := requestContext(cmd)
		defer cancel()
		snap, err := src.FetchGraph(ctx, user)
		if err != nil {
			return describeError(cmd.ErrOrStderr(), err)
		}
		snap = snap.Refresh(time.Now())

		if graphJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		printGraph(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "print the raw snapshot")
}

func printGraph(w io.Writer, snap graph.Snapshot) {
	if snap.Empty() {
		fmt.Fprintln(w, subtle.Sprint("no concepts yet; try `starfield upload`"))
		return
	}
	names := make(map[string]string, len(snap.Nodes))
	for _, n := range snap.Nodes {
		names[n.ID] = n.Name
	}

	fmt.Fprintf(w, "%s\n", brand.Sprintf("%d concepts, %d edges", len(snap.Nodes), len(snap.Edges)))
	for _, n := range snap.Nodes {
		level := "-"
		if n.Level != nil {
			level = fmt.Sprint(*n.Level)
		}
		fmt.Fprintf(w, "  %-28s L%-3s %s %3.0f%%\n", truncate(n.Name, 28), level, bar(n.Brightness, 10), n.Mastery()*100)
	}
	for _, e := range snap.Edges {
		from, to := names[e.Source], names[e.Target]
		if from == "" || to == "" {
			continue
		}
		fmt.Fprintf(w, "  %s %s %s %s\n", from, subtle.Sprint("→"), to, subtle.Sprint(string(e.Type)))
	}
}

// bar draws brightness as a fixed-width meter.
func bar(v float64, width int) string {
	n := int(v*float64(width) + 0.5)
	n = max(0, min(width, n))
	return warn.Sprint(strings.Repeat("★", n)) + subtle.Sprint(strings.Repeat("·", width-n))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

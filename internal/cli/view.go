package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/layout"
	"github.com/lazypower/starfield/internal/logging"
	"github.com/lazypower/starfield/internal/tui"
)

var viewLogPath string

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Explore the starfield in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout belongs to the UI, so logs go to a file or nowhere.
		log := zap.NewNop()
		if viewLogPath != "" {
			l, err := logging.ToFile(viewLogPath, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer l.Sync()
			log = l
		}

		user, err := resolveUser()
		if err != nil {
			return err
		}
		src, err := newGraphSource(cfg, localFlag, log)
		if err != nil {
			return err
		}
		defer src.Close()

		return tui.Run(tui.New(tui.Options{
			Gateway: src,
			UserID:  user,
			Engine:  layout.New(cfg.Layout),
			Zoom:    cfg.View.Zoom,
			Log:     log,
			Timeout: cfg.Gateway.RequestTimeout,
		}))
	},
}

func init() {
	viewCmd.Flags().StringVar(&viewLogPath, "log", "", "write debug logs to this file")
}

package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var practiceCmd = &cobra.Command{
	Use:   "practice CONCEPT SCORE",
	Short: "Record a graded attempt (score 0-100) at a concept",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("score %q: not a number", args[1])
		}
		user, err := resolveUser()
		if err != nil {
			return err
		}
		src, err := newGraphSource(cfg, localFlag, zap.NewNop())
		if err != nil {
			return err
		}
		defer src.Close()
		if src.practicer == nil {
			return errors.New("practice needs the starfield service or --local")
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		mastery, err := src.practicer.RecordPractice(ctx, user, args[0], score)
		if err != nil {
			return describeError(cmd.ErrOrStderr(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: mastery %.0f%%\n", good.Sprint("practiced"), args[0], mastery*100)
		return nil
	},
}

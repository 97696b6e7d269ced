package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/starfield/internal/config"
)

var (
	configPath string
	userFlag   string
	localFlag  bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "starfield",
	Short: "Knowledge graph starfield",
	Long: "Starfield lays out a learner's concept graph as a field of stars: " +
		"brightness fades with time since practice, size grows with mastery.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $STARFIELD_CONFIG or ~/.starfield/config.toml)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "user id (default: this device's id)")
	rootCmd.PersistentFlags().BoolVar(&localFlag, "local", false, "read and write the local database instead of the service")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(idCmd)
}

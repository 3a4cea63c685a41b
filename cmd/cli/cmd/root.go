package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "castctl",
	Short: "castctl is a command line tool for the castplane podcast platform",
	Long: `castctl is the command-line interface for castplane.

castplane turns uploaded podcast episodes into generated content (summaries,
transcripts, social posts, titles, hashtags, key moments and YouTube
timestamps). Which outputs a project gets depends on your plan tier, and
upgrading later lets you fill in what an older upload is missing.

Common workflows:

  Check an upload against your plan limits:
    castctl validate --size 52428800 --duration 1800

  Register an uploaded file:
    castctl create --file-url https://blob.example/ep.mp3 --name ep.mp3 --size 52428800 --mime audio/mpeg

  Inspect a project:
    castctl show <project-id>

  Generate what your current plan unlocks:
    castctl generate <project-id>

  Re-run a single job:
    castctl retry <project-id> keyMoments

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    CASTCTL_URL      API endpoint (default: http://localhost:6161)
    CASTCTL_TOKEN    API token for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".castctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".castctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "CASTCTL_VARNAME"
	viper.SetEnvPrefix("CASTCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.castctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "castplane controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

// newClient builds a client from the bound url and token. It prints a hint
// and returns nil when no token is configured.
func newClient(cmd *cobra.Command) *ProjectClient {
	token := viper.GetString("token")
	if token == "" {
		cmd.Println("API token not found. Please set it using the --token flag or the CASTCTL_TOKEN environment variable")
		return nil
	}
	return NewProjectClient(viper.GetString("url"), token)
}

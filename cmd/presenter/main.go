// Package main is the presenter CLI: follow a week's presentation as a
// viewer, or drive it as the leader.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "presenter",
	Short: "Follow or drive a live presentation",
	Long: `presenter talks to a studysync server. "watch" mirrors the leader's cursor
as it moves; "lead" sends navigation commands as the leader.

Every flag can also be set in the config file or as a PRESENTER_* environment
variable, e.g. PRESENTER_SERVER or PRESENTER_REALTIME_KEY.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	f := rootCmd.PersistentFlags()
	f.String("config", "", "config file (default: ./presenter.yaml or ~/.config/presenter/config.yaml)")
	f.String("server", "http://localhost:8080", "server base URL")
	f.String("token", "", "access token")
	f.String("email", "", "leader email, used to log in when no token is given")
	f.String("password", "", "leader password")
	f.String("series", "", "series slug")
	f.Int("week", 1, "week number within the series")
	f.String("realtime-key", "", "realtime app key (default: reflected by the server)")
	f.String("realtime-host", "", "realtime host (default: reflected by the server)")
	f.Int("realtime-port", 0, "realtime port (default: reflected by the server)")
	f.String("realtime-scheme", "", "realtime scheme, http or https")
	f.String("log-mode", "dev", "log output: dev or prod")

	for _, name := range []string{
		"server", "token", "email", "password", "series", "week",
		"realtime-key", "realtime-host", "realtime-port", "realtime-scheme", "log-mode",
	} {
		_ = viper.BindPFlag(name, f.Lookup(name))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("presenter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "presenter"))
		}
	}

	viper.SetEnvPrefix("PRESENTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"autometa/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "autometa",
	Short: "Autometa tags stock media files with AI-generated metadata",
	Long: `autometa scans a directory of stock media files (images, vectors,
videos), sends each one to the Gemini API for title, description and
keyword generation, and writes the results to a CSV export and back into
the files themselves.

The engine rotates API keys and models least-recently-used, retries
transient failures with per-class budgets, escalates once to a fallback
model, and slows down automatically when a batch window fails almost
entirely.

Common workflows:

  Tag a directory:
    autometa run --input ./in --output ./out --api-key KEY1 --api-key KEY2

  Use a fixed model and paid-tier concurrency:
    autometa run -i ./in -o ./out --model gemini-2.5-pro --paid --workers 20

  Verify keys and tooling before a long run:
    autometa check --api-key KEY1

Configuration:
  Every flag can also come from a config file or environment variables:
    AUTOMETA_API_KEYS     comma-separated API keys
    AUTOMETA_INPUT_DIR    input directory
    AUTOMETA_OUTPUT_DIR   output directory`,
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

		// Search config in home directory with name ".autometa"
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".autometa")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "AUTOMETA_VARNAME"
	viper.SetEnvPrefix("AUTOMETA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.autometa.yaml)")

	rootCmd.PersistentFlags().StringP("input", "i", "", "directory to scan for media files")
	viper.BindPFlag("input_dir", rootCmd.PersistentFlags().Lookup("input"))

	rootCmd.PersistentFlags().StringP("output", "o", "", "directory for the CSV export and processed files")
	viper.BindPFlag("output_dir", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.PersistentFlags().StringSlice("api-key", nil, "Gemini API key (repeatable)")
	viper.BindPFlag("api_keys", rootCmd.PersistentFlags().Lookup("api-key"))

	rootCmd.PersistentFlags().Bool("paid", false, "paid tier: no per-key pacing, workers not bound to key count")
	viper.BindPFlag("paid", rootCmd.PersistentFlags().Lookup("paid"))

	rootCmd.PersistentFlags().Int("workers", 0, "concurrent workers (default: one per API key)")
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))

	rootCmd.PersistentFlags().String("model", "", "fixed model name (default: automatic rotation)")
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))

	rootCmd.PersistentFlags().Duration("base-delay", config.DefaultBaseDelay, "delay between batch windows")
	viper.BindPFlag("base_delay", rootCmd.PersistentFlags().Lookup("base-delay"))

	rootCmd.PersistentFlags().Bool("auto-retry", true, "re-queue retryable failures for a second pass")
	viper.BindPFlag("auto_retry", rootCmd.PersistentFlags().Lookup("auto-retry"))

	rootCmd.PersistentFlags().Int("keyword-cap", config.DefaultKeywordCap, "maximum keywords kept per file in the export")
	viper.BindPFlag("keyword_cap", rootCmd.PersistentFlags().Lookup("keyword-cap"))

	rootCmd.PersistentFlags().Bool("embed", true, "embed metadata into files with exiftool")
	viper.BindPFlag("embed_metadata", rootCmd.PersistentFlags().Lookup("embed"))

	rootCmd.PersistentFlags().String("endpoint", "", "override the inference API base URL")
	viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))

	rootCmd.PersistentFlags().Duration("timeout", 60*time.Second, "per-request timeout")
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :6162)")
	viper.BindPFlag("metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"autometa/internal/exif"
	"autometa/internal/provider"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify API keys and local tooling before a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command) error {
	keys := viper.GetStringSlice("api_keys")
	if len(keys) == 0 {
		return fmt.Errorf("no API keys configured (--api-key or AUTOMETA_API_KEYS)")
	}

	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		endpoint = provider.DefaultBaseURL
	}

	client := &http.Client{Timeout: 15 * time.Second}
	bad := 0
	for _, key := range keys {
		if err := probeKey(client, endpoint, key); err != nil {
			cmd.Printf("✗ key %s: %v\n", maskKey(key), err)
			bad++
			continue
		}
		cmd.Printf("✓ key %s: ok\n", maskKey(key))
	}

	embedder := &exif.Embedder{}
	if err := embedder.Check(); err != nil {
		cmd.Println("✗ exiftool: not found (embedding will be skipped)")
	} else {
		cmd.Println("✓ exiftool: found")
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d keys failed", bad, len(keys))
	}
	return nil
}

// probeKey lists models with the key; any 2xx means the key is accepted.
func probeKey(client *http.Client, endpoint, key string) error {
	resp, err := client.Get(fmt.Sprintf("%s/models?key=%s", endpoint, key))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rejected with status %d", resp.StatusCode)
	}
	return nil
}

// maskKey keeps just enough of the key to identify it in output.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

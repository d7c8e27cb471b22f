// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pishield CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pishield/pishield/internal/secrets"
	"github.com/pishield/pishield/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "pishield/0.1"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the pishield CLI.
var rootCmd = &cobra.Command{
	Use:   "pishield",
	Short: "AI-media authenticity analysis",
	Long: `pishield analyzes submitted media for signs of AI generation. Each
artifact is classified by modality (image, video, text), run through the
matching signal extractor, and scored by an additive rule engine. Results
are stored per owner and queryable as history.

Run a one-off analysis with "analyze", browse stored results with
"history", serve the HTTP API with "serve", or consume the Redis job queue
with "worker".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pishield.yaml or ~/.config/pishield/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pishield")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pishield"))
		}
	}

	viper.SetEnvPrefix("PISHIELD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the stage configuration from viper and secrets.
func pipelineConfig() types.PipelineConfig {
	httpCfg := types.HTTPConfig{
		Timeout:    viperDuration("http.timeout", 60*time.Second),
		UserAgent:  defaultUserAgent,
		MaxRetries: viper.GetInt("http.max_retries"),
	}

	return types.PipelineConfig{
		Vision: types.VisionConfig{
			HTTPConfig: httpCfg,
			APIKey:     secretDefault("vision-api-key", viper.GetString("vision.api_key")),
			MaxResults: viper.GetInt("vision.max_results"),
		},
		Language: types.LanguageConfig{
			HTTPConfig: httpCfg,
			APIKey:     secretDefault("language-api-key", viper.GetString("language.api_key")),
		},
		Video: types.VideoConfig{
			HTTPConfig:   httpCfg,
			APIKey:       secretDefault("video-api-key", viper.GetString("video.api_key")),
			PollInterval: viperDuration("video.poll_interval", 0),
			MaxWait:      viperDuration("video.max_wait", 0),
		},
		Blob: types.BlobConfig{
			HTTPConfig: httpCfg,
			MaxBytes:   viper.GetInt64("blob.max_bytes"),
		},
		Store: types.StoreConfig{
			Path:         viper.GetString("store.path"),
			DefaultLimit: viper.GetInt("store.default_limit"),
		},
		Queue: types.QueueConfig{
			Address:  viperDefault("queue.address", "localhost:6379"),
			Password: secretDefault("redis-password", viper.GetString("queue.password")),
			DB:       viper.GetInt("queue.db"),
			Workers:  viper.GetInt("queue.workers"),
		},
		Server: types.ServerConfig{
			Address: viper.GetString("server.address"),
		},
	}
}

func viperDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

func viperDefault(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

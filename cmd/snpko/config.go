package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKeys lists the settings that may be persisted with "config set".
var configKeys = []string{
	"correlation_source",
	"data_prefix",
	"db",
	"fdr",
	"knockoff_trials",
	"locus_threshold",
	"never_na",
	"obs_freq",
	"p_samples",
	"p_thresh",
	"random_seed",
	"workdir",
	"workers",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage snpko configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.snpko.yaml.",
		Example: `  snpko config                        # show effective config
  snpko config set fdr 0.2            # raise the target FDR
  snpko config get knockoff_trials    # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	settings := make(map[string]any, len(configKeys))
	for _, k := range configKeys {
		settings[k] = viper.Get(k)
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("# Config file: %s\n", used)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	key = strings.ReplaceAll(strings.ToLower(key), "-", "_")
	if !knownKey(key) {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(configKeys, ", "))
	}
	viper.Set(key, parseConfigValue(value))

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName+".yaml")
	}

	// Persist only the known keys so bound flags do not leak into the file.
	persisted := viper.New()
	for _, k := range configKeys {
		if k == key || viper.InConfig(k) {
			persisted.Set(k, viper.Get(k))
		}
	}
	if err := persisted.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	key = strings.ReplaceAll(strings.ToLower(key), "-", "_")
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}

func knownKey(key string) bool {
	i := sort.SearchStrings(configKeys, key)
	return i < len(configKeys) && configKeys[i] == key
}

// parseConfigValue converts boolean-like and numeric strings to typed values.
func parseConfigValue(value string) any {
	switch value {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

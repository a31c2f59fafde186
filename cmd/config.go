package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spamid/spam-identifier/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Generate, validate and inspect spamid configuration files (YAML or TOML)`,
}

var configGenCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate default configuration file",
	Long:  `Generate a default configuration file. A .toml extension writes TOML, anything else YAML.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := "config.yaml"
		if len(args) > 0 {
			configPath = args[0]
		}

		if _, err := os.Stat(configPath); err == nil {
			overwrite, _ := cmd.Flags().GetBool("force")
			if !overwrite {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
			}
		}

		if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("✅ Configuration file generated: %s\n", configPath)
		fmt.Printf("📝 Edit the file to change labels, data directory or milter settings\n")
		fmt.Printf("🚀 Use 'spamid --config %s ...' to use the configuration\n", configPath)

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate a configuration file for syntax and logical errors`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := args[0]

		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("❌ Configuration validation failed: %w", err)
		}

		fmt.Printf("✅ Configuration is valid: %s\n", configPath)

		if warnings := validateConfigLogic(loaded); len(warnings) > 0 {
			fmt.Printf("\n⚠️  Warnings:\n")
			for _, warning := range warnings {
				fmt.Printf("  - %s\n", warning)
			}
		}

		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [config-file]",
	Short: "Show configuration",
	Long:  `Display the effective configuration: the given file, or --config, or the defaults`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := cfg
		source := configFile
		if len(args) > 0 {
			var err error
			shown, err = config.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			source = args[0]
		}

		if source == "" {
			fmt.Printf("Default Configuration:\n\n")
		} else {
			fmt.Printf("Configuration: %s\n\n", source)
		}

		fmt.Printf("🏷️  Classifier:\n")
		fmt.Printf("  Labels: %s (spam, ham)\n", strings.Join(shown.Classifier.Labels, ", "))
		fmt.Printf("  Split on line breaks: %v\n", shown.Tokenizer.SplitLineBreaks)

		fmt.Printf("\n📂 Data:\n")
		fmt.Printf("  Files: %s\n", filepath.Join(shown.Data.Dir, "<pattern><n>"+shown.Data.Suffix))

		fmt.Printf("\n📤 Results:\n")
		if shown.Results.Redis.Enabled {
			fmt.Printf("  Redis: %s (key %s)\n", shown.Results.Redis.URL, shown.Results.Redis.Key)
		} else {
			fmt.Printf("  Redis: disabled\n")
		}

		fmt.Printf("\n📧 Milter:\n")
		fmt.Printf("  Listen: %s://%s\n", shown.Milter.Network, shown.Milter.Address)
		fmt.Printf("  Reject labels: %v\n", shown.Milter.RejectLabels)
		training := shown.Milter.Training
		fmt.Printf("  Training: %d x %s, %d x %s\n", training.SpamCount, training.SpamPattern, training.HamCount, training.HamPattern)

		fmt.Printf("\n📈 Metrics: ")
		if shown.Metrics.Enabled {
			fmt.Printf("%s/metrics\n", shown.Metrics.Address)
		} else {
			fmt.Printf("disabled\n")
		}

		if verbose, _ := cmd.Flags().GetBool("raw"); verbose {
			data, err := shown.Marshal(strings.EqualFold(filepath.Ext(source), ".toml"))
			if err != nil {
				return err
			}
			fmt.Printf("\n%s", data)
		}

		return nil
	},
}

// validateConfigLogic reports settings that are valid but probably unintended
func validateConfigLogic(c *config.Config) []string {
	var warnings []string

	if len(c.Milter.RejectLabels) == len(c.Classifier.Labels) {
		warnings = append(warnings, "Milter rejects every label - all mail will be refused")
	}

	if _, err := os.Stat(c.Data.Dir); err != nil {
		warnings = append(warnings, fmt.Sprintf("Data directory %s is not accessible", c.Data.Dir))
	}

	if c.Milter.Training.SpamCount+c.Milter.Training.HamCount < 10 {
		warnings = append(warnings, "Milter training corpus is very small")
	}

	if c.Milter.Network == "tcp" && !strings.HasPrefix(c.Milter.Address, "127.0.0.1") && !strings.HasPrefix(c.Milter.Address, "localhost") {
		warnings = append(warnings, "Milter listens on a non-loopback address")
	}

	return warnings
}

func init() {
	configCmd.AddCommand(configGenCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configGenCmd.Flags().Bool("force", false, "Overwrite existing config file")
	configShowCmd.Flags().Bool("raw", false, "Also print the configuration file contents")
}

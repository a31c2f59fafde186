package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spamid/spam-identifier/pkg/filter"
	"github.com/spf13/cobra"
)

var (
	testSpamPattern string
	testSpamCount   int
	testHamPattern  string
	testHamCount    int
)

var testCmd = &cobra.Command{
	Use:   "test [file]",
	Short: "Classify a single file",
	Long: `Learn the spam and ham corpus, then classify one file and print its
label together with the log10 score of every class.

The corpus defaults to milter.training in the configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		training := cfg.Milter.Training
		if cmd.Flags().Changed("spam") {
			training.SpamPattern = testSpamPattern
		}
		if cmd.Flags().Changed("spam-count") {
			training.SpamCount = testSpamCount
		}
		if cmd.Flags().Changed("ham") {
			training.HamPattern = testHamPattern
		}
		if cmd.Flags().Changed("ham-count") {
			training.HamCount = testHamCount
		}
		if training.SpamCount < 1 || training.HamCount < 1 {
			return fmt.Errorf("spam-count and ham-count must be >= 1")
		}

		spamFilter, err := filter.NewSpamFilterWithConfig(cfg,
			filter.WithLogger(logger),
			filter.WithProfiler(prof),
		)
		if err != nil {
			return err
		}
		defer spamFilter.Close()

		if err := spamFilter.Train(training.SpamPattern, training.SpamCount, training.HamPattern, training.HamCount); err != nil {
			return fmt.Errorf("failed to train: %w", err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()

		start := time.Now()
		v, err := spamFilter.Evaluate(f)
		if err != nil {
			return fmt.Errorf("failed to classify file: %w", err)
		}
		duration := time.Since(start)

		fmt.Printf("spamid Test Results:\n")
		fmt.Printf("File: %s\n", path)
		fmt.Printf("Label: %s\n", v.Label)
		for class, score := range v.Scores {
			fmt.Printf("Score %s: %.4f\n", cfg.LabelOf(class), score)
		}
		fmt.Printf("Processing time: %.2fms\n", float64(duration.Nanoseconds())/1e6)

		if configFile != "" {
			fmt.Printf("Configuration: %s\n", configFile)
		}

		return nil
	},
}

func init() {
	testCmd.Flags().StringVar(&testSpamPattern, "spam", "", "Training spam files pattern")
	testCmd.Flags().IntVar(&testSpamCount, "spam-count", 0, "Training spam files count")
	testCmd.Flags().StringVar(&testHamPattern, "ham", "", "Training ham files pattern")
	testCmd.Flags().IntVar(&testHamCount, "ham-count", 0, "Training ham files count")
}

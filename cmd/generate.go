package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spamid/spam-identifier/pkg/corpus"
	"github.com/spamid/spam-identifier/pkg/results"
	"github.com/spf13/cobra"
)

var (
	generateOutput    string
	generateSpamCount int
	generateHamCount  int
	generateTestCount int
	generateSplit     float64
	generateSeed      int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic corpus",
	Long: `Generate numbered spam, ham and test documents (spam1.txt, ham1.txt,
test1.txt, ...) plus expected.txt holding the true label of every test document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateSpamCount <= 0 || generateHamCount <= 0 || generateTestCount < 0 {
			return fmt.Errorf("spam-count and ham-count must be greater than 0")
		}
		if generateSplit < 0 || generateSplit > 1 {
			return fmt.Errorf("spam-ratio must be between 0 and 1")
		}

		output := generateOutput
		if output == "" {
			output = cfg.Data.Dir
		}
		suffix := cfg.Data.Suffix

		if err := os.MkdirAll(output, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		seed := generateSeed
		if !cmd.Flags().Changed("seed") {
			seed = time.Now().UnixNano()
		}
		generator := corpus.NewGenerator(seed)

		fmt.Printf("🧪 Generating corpus...\n")
		fmt.Printf("🚫 Spam documents: %d\n", generateSpamCount)
		fmt.Printf("✅ Ham documents: %d\n", generateHamCount)
		fmt.Printf("🔍 Test documents: %d (%.1f%% spam)\n", generateTestCount, generateSplit*100)
		fmt.Printf("📂 Output directory: %s\n\n", output)

		start := time.Now()

		if err := corpus.WriteSet(output, suffix, corpus.Pattern{Prefix: "spam", Count: generateSpamCount}, generator.Spam); err != nil {
			return err
		}
		if err := corpus.WriteSet(output, suffix, corpus.Pattern{Prefix: "ham", Count: generateHamCount}, generator.Ham); err != nil {
			return err
		}

		if generateTestCount > 0 {
			if err := writeTestSet(output, suffix, generator); err != nil {
				return err
			}
		}

		duration := time.Since(start)
		total := generateSpamCount + generateHamCount + generateTestCount

		fmt.Printf("✅ Generation complete!\n")
		fmt.Printf("⏱️ Time taken: %v\n", duration)
		fmt.Printf("📈 Rate: %.0f documents/second\n", float64(total)/duration.Seconds())
		if generateTestCount > 0 {
			fmt.Printf("🚀 Try: spamid spam %d ham %d test %d result.txt\n", generateSpamCount, generateHamCount, generateTestCount)
		}

		logger.Debug().Int64("seed", seed).Str("output", output).Msg("corpus generated")
		return nil
	},
}

// writeTestSet writes the test documents and their expected labels
func writeTestSet(output, suffix string, generator *corpus.Generator) error {
	expected, err := results.CreateFile(filepath.Join(output, "expected"+suffix))
	if err != nil {
		return err
	}

	test := corpus.Pattern{Prefix: "test", Count: generateTestCount}
	names := test.Names(suffix)
	i := 0
	next := func() string {
		var doc string
		r := results.Result{Name: names[i]}
		if generator.IsSpam(generateSplit) {
			doc, r.Label = generator.Spam(), cfg.LabelOf(0)
		} else {
			doc, r.Label = generator.Ham(), cfg.LabelOf(1)
		}
		i++
		if werr := expected.Write(context.Background(), r); werr != nil && err == nil {
			err = werr
		}
		return doc
	}

	if werr := corpus.WriteSet(output, suffix, test, next); werr != nil {
		expected.Close()
		return werr
	}
	if cerr := expected.Close(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output directory (defaults to data.dir)")
	generateCmd.Flags().IntVar(&generateSpamCount, "spam-count", 50, "Number of spam documents")
	generateCmd.Flags().IntVar(&generateHamCount, "ham-count", 50, "Number of ham documents")
	generateCmd.Flags().IntVar(&generateTestCount, "test-count", 20, "Number of test documents")
	generateCmd.Flags().Float64VarP(&generateSplit, "spam-ratio", "r", 0.5, "Ratio of spam among test documents (0.0-1.0)")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "Random seed (defaults to the current time)")
}

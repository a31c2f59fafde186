package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spamid/spam-identifier/pkg/corpus"
	"github.com/spamid/spam-identifier/pkg/filter"
	"github.com/spamid/spam-identifier/pkg/learning"
	"github.com/spamid/spam-identifier/pkg/profiler"
	"github.com/spf13/cobra"
)

var (
	benchmarkTrain int
	benchmarkTest  int
	benchmarkRuns  int
	benchmarkSeed  int64
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure training and classification speed",
	Long: `Train on an in-memory synthetic corpus and classify synthetic test
documents, reporting timings and accuracy. Nothing is written to disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchmarkTrain <= 0 || benchmarkTest <= 0 || benchmarkRuns <= 0 {
			return fmt.Errorf("train, test and runs must be greater than 0")
		}

		fmt.Printf("🚀 spamid Benchmark\n")
		fmt.Printf("📚 Training documents per class: %d\n", benchmarkTrain)
		fmt.Printf("🔍 Test documents: %d\n", benchmarkTest)
		fmt.Printf("🔄 Runs: %d\n\n", benchmarkRuns)

		var runs []benchmarkResult
		for run := 0; run < benchmarkRuns; run++ {
			r, err := runBenchmark(corpus.NewGenerator(benchmarkSeed + int64(run)))
			if err != nil {
				return fmt.Errorf("run %d failed: %w", run+1, err)
			}
			runs = append(runs, r)
			fmt.Printf("Run %d: train %v, classify %v/doc, accuracy %.1f%%, vocabulary %d\n",
				run+1, r.train, r.perDocument(), r.accuracy()*100, r.vocabulary)
		}

		displayBenchmarkResults(runs)
		return nil
	},
}

type benchmarkResult struct {
	train      time.Duration
	classify   time.Duration
	documents  int
	correct    int
	vocabulary int
}

func (r benchmarkResult) perDocument() time.Duration {
	return r.classify / time.Duration(r.documents)
}

func (r benchmarkResult) accuracy() float64 {
	return float64(r.correct) / float64(r.documents)
}

func runBenchmark(g *corpus.Generator) (benchmarkResult, error) {
	groups := make([][]learning.Source, 2)
	for i := 0; i < benchmarkTrain; i++ {
		groups[filter.Spam] = append(groups[filter.Spam], learning.ReaderSource(strings.NewReader(g.Spam())))
		groups[filter.Ham] = append(groups[filter.Ham], learning.ReaderSource(strings.NewReader(g.Ham())))
	}

	classifier, err := learning.New(2, learning.WithTokenizer(filter.TokenizerMode(cfg)))
	if err != nil {
		return benchmarkResult{}, err
	}
	defer classifier.Close()

	var r benchmarkResult
	start := time.Now()
	if err := classifier.Learn(groups); err != nil {
		return r, err
	}
	r.train = time.Since(start)
	prof.Record(profiler.PhaseLearn, r.train)
	r.vocabulary = classifier.DictionarySize()

	for i := 0; i < benchmarkTest; i++ {
		expected, doc := filter.Ham, g.Ham()
		if g.IsSpam(0.5) {
			expected, doc = filter.Spam, g.Spam()
		}

		start := time.Now()
		class, err := classifier.ClassifyReader(strings.NewReader(doc))
		elapsed := time.Since(start)
		if err != nil {
			return r, err
		}
		prof.Record(profiler.PhaseClassify, elapsed)

		r.classify += elapsed
		r.documents++
		if class == expected {
			r.correct++
		}
	}

	return r, nil
}

func displayBenchmarkResults(runs []benchmarkResult) {
	perDoc := make([]time.Duration, len(runs))
	var train time.Duration
	var correct, documents int
	for i, r := range runs {
		perDoc[i] = r.perDocument()
		train += r.train
		correct += r.correct
		documents += r.documents
	}
	slices.Sort(perDoc)

	fmt.Printf("\n📊 Results\n")
	fmt.Printf("  Average training time: %v\n", train/time.Duration(len(runs)))
	fmt.Printf("  Classification per document: min %v, median %v, max %v\n",
		perDoc[0], perDoc[len(perDoc)/2], perDoc[len(perDoc)-1])
	fmt.Printf("  Throughput: %.0f documents/second\n", float64(time.Second)/float64(perDoc[len(perDoc)/2]))
	fmt.Printf("  Accuracy: %.2f%% (%d/%d)\n", float64(correct)/float64(documents)*100, correct, documents)
}

func init() {
	benchmarkCmd.Flags().IntVar(&benchmarkTrain, "train", 200, "Training documents per class")
	benchmarkCmd.Flags().IntVar(&benchmarkTest, "test", 1000, "Test documents per run")
	benchmarkCmd.Flags().IntVar(&benchmarkRuns, "runs", 3, "Number of benchmark runs")
	benchmarkCmd.Flags().Int64Var(&benchmarkSeed, "seed", 1, "Random seed of the first run")
}

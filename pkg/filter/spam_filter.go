// Package filter runs the spam identification pipeline: learn the spam and
// ham corpora, classify the tested documents and hand every result to a sink.
package filter

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spamid/spam-identifier/pkg/arrays"
	"github.com/spamid/spam-identifier/pkg/config"
	"github.com/spamid/spam-identifier/pkg/corpus"
	"github.com/spamid/spam-identifier/pkg/learning"
	"github.com/spamid/spam-identifier/pkg/metrics"
	"github.com/spamid/spam-identifier/pkg/profiler"
	"github.com/spamid/spam-identifier/pkg/results"
	"github.com/spamid/spam-identifier/pkg/tokenizer"
)

// Class indices of the two-class spam classifier
const (
	Spam = 0
	Ham  = 1
)

// FilterResults contains the results of one classification run
type FilterResults struct {
	Total   int
	ByLabel map[string]int
}

// Verdict is the classification of a single document
type Verdict struct {
	Class  int
	Label  string
	Scores []float64 // log10 score per class
}

// SpamFilter wraps a two-class classifier. It is safe for concurrent use;
// access to the classifier is serialized.
type SpamFilter struct {
	mu         sync.Mutex
	classifier *learning.Classifier
	config     *config.Config
	profiler   *profiler.Profiler
	logger     zerolog.Logger
}

// Option configures a SpamFilter
type Option func(*SpamFilter)

// WithProfiler records phase timings into p
func WithProfiler(p *profiler.Profiler) Option {
	return func(sf *SpamFilter) {
		sf.profiler = p
	}
}

// WithLogger sets the filter and classifier logger
func WithLogger(logger zerolog.Logger) Option {
	return func(sf *SpamFilter) {
		sf.logger = logger
	}
}

// NewSpamFilter creates an untrained filter with the default configuration
func NewSpamFilter(opts ...Option) (*SpamFilter, error) {
	return NewSpamFilterWithConfig(config.DefaultConfig(), opts...)
}

// NewSpamFilterWithConfig creates an untrained filter with custom configuration
func NewSpamFilterWithConfig(cfg *config.Config, opts ...Option) (*SpamFilter, error) {
	sf := &SpamFilter{
		config: cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(sf)
	}

	classifier, err := learning.New(len(cfg.Classifier.Labels),
		learning.WithTokenizer(TokenizerMode(cfg)),
		learning.WithLogger(sf.logger.With().Str("component", "learning").Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	sf.classifier = classifier

	return sf, nil
}

// TokenizerMode returns the tokenizer mode selected by cfg
func TokenizerMode(cfg *config.Config) tokenizer.Mode {
	if cfg.Tokenizer.SplitLineBreaks {
		return tokenizer.Strict
	}
	return tokenizer.Literal
}

// Paths returns the corpus paths of pattern inside the configured data directory
func (sf *SpamFilter) Paths(pattern string, count int) []string {
	return corpus.Pattern{Prefix: pattern, Count: count}.Paths(sf.config.Data.Dir, sf.config.Data.Suffix)
}

// Train learns count numbered spam and ham documents from the data directory
func (sf *SpamFilter) Train(spamPattern string, spamCount int, hamPattern string, hamCount int) error {
	groups := corpus.Groups(sf.config.Data.Dir, sf.config.Data.Suffix,
		corpus.Pattern{Prefix: spamPattern, Count: spamCount},
		corpus.Pattern{Prefix: hamPattern, Count: hamCount},
	)
	return sf.TrainFiles(groups)
}

// TrainFiles learns documents grouped by class index
func (sf *SpamFilter) TrainFiles(groups [][]string) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	err := sf.profiler.Time(profiler.PhaseLearn, func() error {
		return sf.classifier.LearnFiles(groups)
	})
	if err != nil {
		metrics.TrainingFailures.Inc()
		return fmt.Errorf("failed to learn: %w", err)
	}

	documents := make(map[string]int, len(groups))
	for class, group := range groups {
		documents[sf.config.LabelOf(class)] += len(group)
	}
	metrics.RecordTraining(documents, sf.classifier.DictionarySize())

	sf.logger.Info().
		Interface("documents", documents).
		Int("vocabulary", sf.classifier.DictionarySize()).
		Msg("classifier trained")

	return nil
}

// IsTrained reports whether the filter has learnt its corpus
func (sf *SpamFilter) IsTrained() bool {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.classifier.IsLearnt()
}

// Evaluate classifies r and returns its class, label and scores
func (sf *SpamFilter) Evaluate(r io.Reader) (Verdict, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	start := time.Now()
	scores, err := sf.classifier.Scores(r)
	if err != nil {
		metrics.ClassificationErrors.Inc()
		return Verdict{Class: learning.Unclassified}, err
	}

	v := sf.verdict(scores)
	metrics.RecordClassification(v.Label, time.Since(start))
	return v, nil
}

func (sf *SpamFilter) verdict(scores []float64) Verdict {
	class := arrays.Extreme(scores, cmp.Compare[float64])
	return Verdict{
		Class:  class,
		Label:  sf.config.LabelOf(class),
		Scores: scores,
	}
}

// ClassifyFile classifies one document on disk
func (sf *SpamFilter) ClassifyFile(path string) (results.Result, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	start := time.Now()
	var class int
	err := sf.profiler.Time(profiler.PhaseClassify, func() error {
		var err error
		class, err = sf.classifier.ClassifyFile(path)
		return err
	})
	if err != nil {
		metrics.ClassificationErrors.Inc()
		return results.Result{Class: learning.Unclassified}, fmt.Errorf("failed to classify %s: %w", path, err)
	}

	label := sf.config.LabelOf(class)
	metrics.RecordClassification(label, time.Since(start))

	return results.Result{
		Name:  filepath.Base(path),
		Class: class,
		Label: label,
	}, nil
}

// ProcessFiles classifies every path in order and writes each result to sink.
// The first failure stops the run.
func (sf *SpamFilter) ProcessFiles(ctx context.Context, paths []string, sink results.Sink) (*FilterResults, error) {
	res := &FilterResults{ByLabel: make(map[string]int)}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		r, err := sf.ClassifyFile(path)
		if err != nil {
			return res, err
		}

		err = sf.profiler.Time(profiler.PhaseWrite, func() error {
			return sink.Write(ctx, r)
		})
		if err != nil {
			return res, err
		}

		res.Total++
		res.ByLabel[r.Label]++
		sf.logger.Debug().Str("file", r.Name).Str("label", r.Label).Msg("classified")
	}

	return res, nil
}

// ProcessPattern classifies count numbered documents of pattern
func (sf *SpamFilter) ProcessPattern(ctx context.Context, pattern string, count int, sink results.Sink) (*FilterResults, error) {
	return sf.ProcessFiles(ctx, sf.Paths(pattern, count), sink)
}

// Close releases the classifier
func (sf *SpamFilter) Close() {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.classifier.Close()
}

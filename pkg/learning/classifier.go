// Package learning implements a bag-of-words naive Bayes classifier with a
// fixed number of classes.
//
// Training is two-pass: word occurrences are counted per class into one
// store, then add-one smoothed per-class word probabilities are derived into
// a second store. A classifier learns exactly once; a failed attempt leaves
// it empty and ready for another attempt.
package learning

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"

	"github.com/rs/zerolog"
	"github.com/spamid/spam-identifier/pkg/arrays"
	"github.com/spamid/spam-identifier/pkg/hashtable"
	"github.com/spamid/spam-identifier/pkg/tokenizer"
)

// Unclassified is the class returned when classification fails
const Unclassified = -1

var (
	// ErrInvalidArgument is returned for a zero class count or malformed training groups
	ErrInvalidArgument = errors.New("learning: invalid argument")
	// ErrNotLearnt is returned by Classify before a successful Learn
	ErrNotLearnt = errors.New("learning: classifier has not learnt yet")
	// ErrAlreadyLearnt is returned by Learn on a trained classifier
	ErrAlreadyLearnt = errors.New("learning: classifier has already learnt")
	// ErrEmptyVocabulary is returned when the training documents hold no tokens
	ErrEmptyVocabulary = errors.New("learning: training documents contain no words")
)

// Classifier is a naive Bayes classifier. It is not safe for concurrent use.
type Classifier struct {
	classes int

	priors     []float64 // prior probability per class
	classWords []uint64  // word occurrences per class, duplicates included
	dictSize   int       // distinct words learnt

	wordCounts *hashtable.Store[[]uint64]  // word -> occurrences per class
	wordProbs  *hashtable.Store[[]float64] // word -> smoothed probability per class

	mode   tokenizer.Mode
	logger zerolog.Logger
}

// Option configures a Classifier
type Option func(*Classifier)

// WithTokenizer selects how documents are split into words
func WithTokenizer(mode tokenizer.Mode) Option {
	return func(c *Classifier) {
		c.mode = mode
	}
}

// WithLogger sets the logger used for training and classification summaries
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates an untrained classifier for the given number of classes
func New(classes int, opts ...Option) (*Classifier, error) {
	if classes <= 0 {
		return nil, fmt.Errorf("%w: class count must be positive, got %d", ErrInvalidArgument, classes)
	}

	c := &Classifier{
		classes: classes,
		mode:    tokenizer.Literal,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.reset(); err != nil {
		return nil, err
	}
	return c, nil
}

// releaseRow zeroes a per-word row so stale handles cannot observe old counts
func releaseRow[T uint64 | float64](row []T) {
	clear(row)
}

// reset puts the classifier in the empty untrained state
func (c *Classifier) reset() error {
	wordCounts, err := hashtable.New(hashtable.WithRelease(releaseRow[uint64]))
	if err != nil {
		return err
	}
	wordProbs, err := hashtable.New(hashtable.WithRelease(releaseRow[float64]))
	if err != nil {
		return err
	}

	c.priors = make([]float64, c.classes)
	c.classWords = make([]uint64, c.classes)
	c.dictSize = 0
	c.wordCounts = wordCounts
	c.wordProbs = wordProbs

	return nil
}

// Close releases both word stores. The classifier is unusable afterwards.
func (c *Classifier) Close() {
	if c.wordCounts != nil {
		c.wordCounts.Close()
	}
	if c.wordProbs != nil {
		c.wordProbs.Close()
	}
	c.dictSize = 0
}

// IsLearnt reports whether the classifier has been trained
func (c *Classifier) IsLearnt() bool {
	return c.dictSize > 0
}

// Learn trains the classifier. groups[k] holds the training documents of class k.
// On failure every partial result is discarded and the classifier is left
// untrained. A trained classifier refuses to learn again.
func (c *Classifier) Learn(groups [][]Source) error {
	if c.IsLearnt() {
		return ErrAlreadyLearnt
	}
	if len(groups) != c.classes {
		return fmt.Errorf("%w: expected %d document groups, got %d", ErrInvalidArgument, c.classes, len(groups))
	}

	if err := c.learn(groups); err != nil {
		c.Close()
		if resetErr := c.reset(); resetErr != nil {
			return errors.Join(err, resetErr)
		}
		c.logger.Debug().Err(err).Msg("training rolled back")
		return err
	}

	c.logger.Debug().
		Int("dictionary_size", c.dictSize).
		Uints64("class_words", c.classWords).
		Floats64("priors", c.priors).
		Msg("training complete")

	return nil
}

// LearnFiles trains from file paths grouped by class
func (c *Classifier) LearnFiles(groups [][]string) error {
	sources := make([][]Source, len(groups))
	for k, paths := range groups {
		sources[k] = FileSources(paths)
	}
	return c.Learn(sources)
}

func (c *Classifier) learn(groups [][]Source) error {
	if err := c.computePriors(groups); err != nil {
		return err
	}

	for class, group := range groups {
		for i, src := range group {
			if err := c.count(class, src); err != nil {
				return fmt.Errorf("class %d document %d: %w", class, i, err)
			}
		}
	}

	c.computeClassWords()

	c.dictSize = c.wordCounts.Len()
	if c.dictSize == 0 {
		return ErrEmptyVocabulary
	}

	return c.smooth()
}

// computePriors sets each class prior to its share of the training documents
func (c *Classifier) computePriors(groups [][]Source) error {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	if total == 0 {
		return fmt.Errorf("%w: no training documents", ErrInvalidArgument)
	}

	t := float64(total)
	for class, group := range groups {
		c.priors[class] = 1 - (t-float64(len(group)))/t
	}
	return nil
}

// count adds every token of src to the occurrence counts of class
func (c *Classifier) count(class int, src Source) (err error) {
	rc, err := src()
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close document: %w", cerr)
		}
	}()

	for word, terr := range tokenizer.New(rc, c.mode).All() {
		if terr != nil {
			return fmt.Errorf("failed to read document: %w", terr)
		}

		counts, ok := c.wordCounts.Get(word)
		if ok {
			counts[class]++
			continue
		}

		counts = make([]uint64, c.classes)
		counts[class] = 1
		if err := c.wordCounts.Add(word, counts); err != nil {
			return err
		}
	}

	return nil
}

// computeClassWords sums every word's occurrences per class
func (c *Classifier) computeClassWords() {
	it := c.wordCounts.Iterator()
	for it.HasNext() {
		_, counts, _ := it.Next()
		for class, n := range counts {
			c.classWords[class] += n
		}
	}
}

// smooth derives add-one smoothed word probabilities from the counts
func (c *Classifier) smooth() error {
	dict := float64(c.dictSize)

	it := c.wordCounts.Iterator()
	for it.HasNext() {
		word, counts, _ := it.Next()

		probs := make([]float64, c.classes)
		for class, n := range counts {
			probs[class] = (1 + float64(n)) / (float64(c.classWords[class]) + dict)
		}
		if err := c.wordProbs.Add(word, probs); err != nil {
			return err
		}
	}

	return nil
}

// Scores returns the log10 probability of r under every class. Words never
// seen during training are skipped.
func (c *Classifier) Scores(r io.Reader) ([]float64, error) {
	if !c.IsLearnt() {
		return nil, ErrNotLearnt
	}

	scores := make([]float64, c.classes)
	for class, prior := range c.priors {
		scores[class] = math.Log10(prior)
	}

	for word, err := range tokenizer.New(r, c.mode).All() {
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}

		probs, ok := c.wordProbs.Get(word)
		if !ok {
			continue
		}
		for class, p := range probs {
			scores[class] += math.Log10(p)
		}
	}

	return scores, nil
}

// ClassifyReader returns the most probable class of r. Ties go to the lower class index.
func (c *Classifier) ClassifyReader(r io.Reader) (int, error) {
	scores, err := c.Scores(r)
	if err != nil {
		return Unclassified, err
	}
	return arrays.Extreme(scores, cmp.Compare[float64]), nil
}

// Classify opens src and returns its most probable class
func (c *Classifier) Classify(src Source) (class int, err error) {
	if !c.IsLearnt() {
		return Unclassified, ErrNotLearnt
	}

	rc, err := src()
	if err != nil {
		return Unclassified, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			class, err = Unclassified, fmt.Errorf("failed to close document: %w", cerr)
		}
	}()

	return c.ClassifyReader(rc)
}

// ClassifyFile classifies the file at path
func (c *Classifier) ClassifyFile(path string) (int, error) {
	return c.Classify(FileSource(path))
}

// Classes returns the number of classes
func (c *Classifier) Classes() int {
	return c.classes
}

// DictionarySize returns the number of distinct words learnt
func (c *Classifier) DictionarySize() int {
	return c.dictSize
}

// Priors returns a copy of the class prior probabilities
func (c *Classifier) Priors() []float64 {
	return append([]float64(nil), c.priors...)
}

// ClassWords returns a copy of the per-class word occurrence totals
func (c *Classifier) ClassWords() []uint64 {
	return append([]uint64(nil), c.classWords...)
}

// Contains reports whether word was learnt
func (c *Classifier) Contains(word string) bool {
	return c.wordCounts.Contains(word)
}

// WordCounts returns a copy of the per-class occurrences of word
func (c *Classifier) WordCounts(word string) ([]uint64, bool) {
	counts, ok := c.wordCounts.Get(word)
	if !ok {
		return nil, false
	}
	return append([]uint64(nil), counts...), true
}

// WordProbabilities returns a copy of the per-class smoothed probabilities of word
func (c *Classifier) WordProbabilities(word string) ([]float64, bool) {
	probs, ok := c.wordProbs.Get(word)
	if !ok {
		return nil, false
	}
	return append([]float64(nil), probs...), true
}

// Words iterates over the learnt vocabulary
func (c *Classifier) Words() iter.Seq[string] {
	return func(yield func(string) bool) {
		for word := range c.wordCounts.All() {
			if !yield(word) {
				return
			}
		}
	}
}

package learning

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spamid/spam-identifier/pkg/tokenizer"
)

const (
	spam = 0
	ham  = 1
)

const tolerance = 1e-12

func texts(docs ...string) []Source {
	sources := make([]Source, len(docs))
	for i, doc := range docs {
		doc := doc
		sources[i] = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(doc)), nil
		}
	}
	return sources
}

func newClassifier(t *testing.T, classes int, opts ...Option) *Classifier {
	t.Helper()
	c, err := New(classes, opts...)
	if err != nil {
		t.Fatalf("Failed to create classifier: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func classifyText(t *testing.T, c *Classifier, text string) int {
	t.Helper()
	class, err := c.ClassifyReader(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Classification failed: %v", err)
	}
	return class
}

func TestNewRejectsZeroClasses(t *testing.T) {
	for _, n := range []int{0, -1} {
		c, err := New(n)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("New(%d): expected ErrInvalidArgument, got %v", n, err)
		}
		if c != nil {
			t.Errorf("New(%d) returned a classifier", n)
		}
	}
}

func TestNewClassifierIsUntrained(t *testing.T) {
	c := newClassifier(t, 2)

	if c.IsLearnt() {
		t.Error("New classifier should not be learnt")
	}
	if c.Classes() != 2 {
		t.Errorf("Classes() = %d, expected 2", c.Classes())
	}
	if c.DictionarySize() != 0 {
		t.Errorf("DictionarySize() = %d, expected 0", c.DictionarySize())
	}
	if !reflect.DeepEqual(c.Priors(), []float64{0, 0}) {
		t.Errorf("Priors() = %v, expected zeros", c.Priors())
	}
}

func TestClassifyBeforeLearn(t *testing.T) {
	c := newClassifier(t, 2)

	class, err := c.ClassifyReader(strings.NewReader("buy"))
	if !errors.Is(err, ErrNotLearnt) || class != Unclassified {
		t.Errorf("ClassifyReader = %d, %v; expected Unclassified, ErrNotLearnt", class, err)
	}

	opened := false
	class, err = c.Classify(func() (io.ReadCloser, error) {
		opened = true
		return io.NopCloser(strings.NewReader("buy")), nil
	})
	if !errors.Is(err, ErrNotLearnt) || class != Unclassified {
		t.Errorf("Classify = %d, %v; expected Unclassified, ErrNotLearnt", class, err)
	}
	if opened {
		t.Error("Classify should fail before opening the document")
	}
}

func TestPriors(t *testing.T) {
	c := newClassifier(t, 2)

	err := c.Learn([][]Source{
		texts("a", "b", "c"),
		texts("d"),
	})
	if err != nil {
		t.Fatalf("Learn failed: %v", err)
	}

	priors := c.Priors()
	if math.Abs(priors[spam]-0.75) > tolerance {
		t.Errorf("prior[spam] = %v, expected 0.75", priors[spam])
	}
	if math.Abs(priors[ham]-0.25) > tolerance {
		t.Errorf("prior[ham] = %v, expected 0.25", priors[ham])
	}
}

func TestCountsAndSmoothing(t *testing.T) {
	c := newClassifier(t, 2)

	err := c.Learn([][]Source{
		texts("buy now buy", "cheap buy"),
		texts("hello friend", "see you now"),
	})
	if err != nil {
		t.Fatalf("Learn failed: %v", err)
	}

	expectedCounts := map[string][]uint64{
		"buy":    {3, 0},
		"now":    {1, 1},
		"cheap":  {1, 0},
		"hello":  {0, 1},
		"friend": {0, 1},
		"see":    {0, 1},
		"you":    {0, 1},
	}

	if c.DictionarySize() != len(expectedCounts) {
		t.Fatalf("DictionarySize() = %d, expected %d", c.DictionarySize(), len(expectedCounts))
	}
	if !reflect.DeepEqual(c.ClassWords(), []uint64{5, 5}) {
		t.Errorf("ClassWords() = %v, expected [5 5]", c.ClassWords())
	}

	dict := float64(c.DictionarySize())
	classWords := c.ClassWords()
	for word, expected := range expectedCounts {
		counts, ok := c.WordCounts(word)
		if !ok {
			t.Fatalf("Word %q was not learnt", word)
		}
		if !reflect.DeepEqual(counts, expected) {
			t.Errorf("WordCounts(%q) = %v, expected %v", word, counts, expected)
		}

		probs, ok := c.WordProbabilities(word)
		if !ok {
			t.Fatalf("Word %q has no probabilities", word)
		}
		for class := range probs {
			want := (1 + float64(counts[class])) / (float64(classWords[class]) + dict)
			if math.Abs(probs[class]-want) > tolerance {
				t.Errorf("P(%q|%d) = %v, expected %v", word, class, probs[class], want)
			}
			if probs[class] <= 0 {
				t.Errorf("P(%q|%d) must be positive", word, class)
			}
		}
	}

	if _, ok := c.WordCounts("unseen"); ok {
		t.Error("Unseen word should have no counts")
	}

	learnt := 0
	for range c.Words() {
		learnt++
	}
	if learnt != len(expectedCounts) {
		t.Errorf("Words() yielded %d words, expected %d", learnt, len(expectedCounts))
	}
}

func TestSpamHamScenario(t *testing.T) {
	c := newClassifier(t, 2)

	if err := c.Learn([][]Source{texts("buy now"), texts("hello friend")}); err != nil {
		t.Fatalf("Learn failed: %v", err)
	}
	if !c.IsLearnt() {
		t.Fatal("Classifier should be learnt")
	}

	if got := classifyText(t, c, "buy"); got != spam {
		t.Errorf("\"buy\" classified as %d, expected spam", got)
	}
	if got := classifyText(t, c, "hello"); got != ham {
		t.Errorf("\"hello\" classified as %d, expected ham", got)
	}
	// equal priors and no known words: tie goes to the lower index
	if got := classifyText(t, c, "xyz"); got != spam {
		t.Errorf("\"xyz\" classified as %d, expected the lower class index", got)
	}
}

func TestUnknownWordsFollowPriors(t *testing.T) {
	c := newClassifier(t, 2)

	if err := c.Learn([][]Source{texts("buy"), texts("hello", "friend", "hi")}); err != nil {
		t.Fatalf("Learn failed: %v", err)
	}

	if got := classifyText(t, c, "xyz qqq"); got != ham {
		t.Errorf("Unknown words classified as %d, expected the class with the higher prior", got)
	}

	scores, err := c.Scores(strings.NewReader("xyz"))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(scores[spam]-math.Log10(0.25)) > tolerance || math.Abs(scores[ham]-math.Log10(0.75)) > tolerance {
		t.Errorf("Scores for unknown word = %v, expected log10 priors", scores)
	}
}

func TestScoresAccumulateLogProbabilities(t *testing.T) {
	c := newClassifier(t, 2)

	if err := c.Learn([][]Source{texts("buy now"), texts("hello friend")}); err != nil {
		t.Fatal(err)
	}

	scores, err := c.Scores(strings.NewReader("buy buy hello"))
	if err != nil {
		t.Fatal(err)
	}

	buy, _ := c.WordProbabilities("buy")
	hello, _ := c.WordProbabilities("hello")
	priors := c.Priors()
	for class := range scores {
		want := math.Log10(priors[class]) + 2*math.Log10(buy[class]) + math.Log10(hello[class])
		if math.Abs(scores[class]-want) > tolerance {
			t.Errorf("score[%d] = %v, expected %v", class, scores[class], want)
		}
	}
}

func TestLearnTwiceIsRefused(t *testing.T) {
	c := newClassifier(t, 2)

	if err := c.Learn([][]Source{texts("buy now"), texts("hello friend")}); err != nil {
		t.Fatal(err)
	}
	priors := c.Priors()
	probs, _ := c.WordProbabilities("buy")
	dict := c.DictionarySize()

	err := c.Learn([][]Source{texts("totally different"), texts("words")})
	if !errors.Is(err, ErrAlreadyLearnt) {
		t.Fatalf("Expected ErrAlreadyLearnt, got %v", err)
	}

	if !reflect.DeepEqual(c.Priors(), priors) {
		t.Errorf("Priors changed after refused Learn: %v", c.Priors())
	}
	if again, _ := c.WordProbabilities("buy"); !reflect.DeepEqual(again, probs) {
		t.Errorf("Probabilities changed after refused Learn: %v", again)
	}
	if c.DictionarySize() != dict {
		t.Errorf("DictionarySize changed after refused Learn: %d", c.DictionarySize())
	}
	if c.Contains("totally") {
		t.Error("Refused Learn should not add words")
	}
}

func TestFailedLearnResets(t *testing.T) {
	c := newClassifier(t, 2)

	boom := errors.New("read failure")
	broken := func() (io.ReadCloser, error) { return nil, boom }

	err := c.Learn([][]Source{texts("buy now"), {broken}})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped read failure, got %v", err)
	}

	if c.IsLearnt() {
		t.Error("Classifier should not be learnt after a failure")
	}
	if c.Contains("buy") {
		t.Error("Partial counts should be discarded")
	}
	if !reflect.DeepEqual(c.Priors(), []float64{0, 0}) || !reflect.DeepEqual(c.ClassWords(), []uint64{0, 0}) {
		t.Errorf("State not reset: priors=%v classWords=%v", c.Priors(), c.ClassWords())
	}

	// a reset classifier can learn again
	if err := c.Learn([][]Source{texts("buy now"), texts("hello friend")}); err != nil {
		t.Fatalf("Learn after reset failed: %v", err)
	}
	if got := classifyText(t, c, "buy"); got != spam {
		t.Errorf("\"buy\" classified as %d after relearning", got)
	}
}

func TestLearnRejectsMalformedGroups(t *testing.T) {
	testCases := []struct {
		name     string
		groups   [][]Source
		expected error
	}{
		{"Too few groups", [][]Source{texts("a")}, ErrInvalidArgument},
		{"Too many groups", [][]Source{texts("a"), texts("b"), texts("c")}, ErrInvalidArgument},
		{"No documents", [][]Source{{}, {}}, ErrInvalidArgument},
		{"Only whitespace", [][]Source{texts("   "), texts("\n")}, ErrEmptyVocabulary},
		{"Empty documents", [][]Source{texts(""), texts("")}, ErrEmptyVocabulary},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(2, WithTokenizer(tokenizer.Strict))
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()

			if err := c.Learn(tc.groups); !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
			if c.IsLearnt() {
				t.Error("Classifier should stay untrained")
			}
		})
	}
}

func TestTokenizerModes(t *testing.T) {
	groups := func() [][]Source {
		return [][]Source{texts("buy now\nbuy"), texts("hello friend\n")}
	}

	literal := newClassifier(t, 2)
	if err := literal.Learn(groups()); err != nil {
		t.Fatal(err)
	}
	if !literal.Contains("now\nbuy") || literal.Contains("now") {
		t.Error("Literal mode should keep line breaks inside tokens")
	}

	strict := newClassifier(t, 2, WithTokenizer(tokenizer.Strict))
	if err := strict.Learn(groups()); err != nil {
		t.Fatal(err)
	}
	counts, ok := strict.WordCounts("buy")
	if !ok || counts[spam] != 2 {
		t.Errorf("Strict mode counts for \"buy\" = %v, expected 2 spam occurrences", counts)
	}
	if !strict.Contains("friend") {
		t.Error("Strict mode should split at line breaks")
	}
}

func TestMultiClass(t *testing.T) {
	c := newClassifier(t, 3)

	err := c.Learn([][]Source{
		texts("goal match striker", "match referee"),
		texts("vote election senate"),
		texts("compiler golang goroutine", "golang channel"),
	})
	if err != nil {
		t.Fatal(err)
	}

	testCases := map[string]int{
		"striker match":     0,
		"senate vote":       1,
		"goroutine channel": 2,
	}
	for text, expected := range testCases {
		if got := classifyText(t, c, text); got != expected {
			t.Errorf("%q classified as %d, expected %d", text, got, expected)
		}
	}
}

func TestLearnFilesAndClassifyFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	spam1 := write("spam1.txt", "buy now cheap pills")
	ham1 := write("ham1.txt", "hello friend lunch tomorrow")
	test1 := write("test1.txt", "cheap pills")

	c := newClassifier(t, 2)
	if err := c.LearnFiles([][]string{{spam1}, {ham1}}); err != nil {
		t.Fatalf("LearnFiles failed: %v", err)
	}

	class, err := c.ClassifyFile(test1)
	if err != nil || class != spam {
		t.Errorf("ClassifyFile = %d, %v; expected spam", class, err)
	}

	class, err = c.ClassifyFile(filepath.Join(dir, "missing.txt"))
	if err == nil || class != Unclassified {
		t.Errorf("ClassifyFile on missing file = %d, %v; expected failure", class, err)
	}
	if !c.IsLearnt() {
		t.Error("Failed classification must not change classifier state")
	}
}

func TestLearnFilesMissingFileResets(t *testing.T) {
	dir := t.TempDir()
	spam1 := filepath.Join(dir, "spam1.txt")
	if err := os.WriteFile(spam1, []byte("buy"), 0644); err != nil {
		t.Fatal(err)
	}

	c := newClassifier(t, 2)
	err := c.LearnFiles([][]string{{spam1}, {filepath.Join(dir, "ham1.txt")}})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected os.ErrNotExist, got %v", err)
	}
	if c.IsLearnt() || c.Contains("buy") {
		t.Error("Classifier should be reset after a missing file")
	}
}

type closeFailer struct {
	io.Reader
}

func (closeFailer) Close() error { return errors.New("close failed") }

func TestCloseErrorFailsLearn(t *testing.T) {
	c := newClassifier(t, 2)

	failing := func() (io.ReadCloser, error) {
		return closeFailer{strings.NewReader("hello")}, nil
	}
	if err := c.Learn([][]Source{texts("buy"), {failing}}); err == nil {
		t.Fatal("Expected Learn to fail when a document cannot be closed")
	}
	if c.IsLearnt() {
		t.Error("Classifier should be reset")
	}
}

func TestCloseReleasesRows(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Learn([][]Source{texts("buy buy"), texts("hello")}); err != nil {
		t.Fatal(err)
	}

	row, _ := c.wordCounts.Get("buy")
	c.Close()

	if row[spam] != 0 {
		t.Errorf("Released row still holds %v", row)
	}
	if c.IsLearnt() {
		t.Error("Closed classifier should not be learnt")
	}
	if _, err := c.ClassifyReader(strings.NewReader("buy")); !errors.Is(err, ErrNotLearnt) {
		t.Errorf("Expected ErrNotLearnt after Close, got %v", err)
	}
}

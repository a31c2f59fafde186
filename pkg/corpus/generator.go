package corpus

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Generator writes synthetic spam and ham documents for trying out the classifier
type Generator struct {
	rand *rand.Rand

	spamSentences []string
	hamSentences  []string
	names         []string
	links         []string
}

// NewGenerator creates a generator; equal seeds produce equal corpora
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rand: rand.New(rand.NewSource(seed)),

		spamSentences: []string{
			"Congratulations you have been selected to receive free money",
			"No risk involved and guaranteed income for everyone",
			"Act now before this limited time offer expires",
			"Your account will be suspended unless you verify your details",
			"Make money fast with our proven system",
			"You have won our lottery claim your prize now",
			"Lose weight fast with our miracle pill",
			"Cheap pills without prescription and free shipping",
			"Click here to unlock your exclusive bonus",
			"Work from home and earn thousands every week",
		},

		hamSentences: []string{
			"I wanted to remind you about our meeting tomorrow afternoon",
			"Please find attached the quarterly report for your review",
			"Phase two of the project has been completed on schedule",
			"We are planning a team lunch this Friday",
			"Let me know if you need to reschedule the call",
			"The budget proposal is ready for approval",
			"Could you review the draft before the deadline",
			"Thanks for the notes from the conference yesterday",
			"The invoice for last month is in the shared folder",
			"See you at the training session next week",
		},

		names: []string{
			"John", "Jane", "Mike", "Sarah", "David",
			"Lisa", "Robert", "Emily", "Michael", "Jennifer",
		},

		links: []string{
			"http://get-rich-quick.example/win", "http://free-money.example/claim",
			"http://lottery.example/prize", "http://cheap-pills.example/order",
		},
	}
}

// Spam returns one spam document
func (g *Generator) Spam() string {
	lines := g.pick(g.spamSentences, 2+g.rand.Intn(3))
	lines = append(lines, "Visit "+g.choice(g.links))
	if g.rand.Float64() < 0.5 {
		lines[0] = strings.ToUpper(lines[0])
	}
	return strings.Join(lines, "\n") + "\n"
}

// Ham returns one ham document
func (g *Generator) Ham() string {
	name := g.choice(g.names)
	lines := []string{"Hi " + name}
	lines = append(lines, g.pick(g.hamSentences, 2+g.rand.Intn(3))...)
	lines = append(lines, "Best regards "+g.choice(g.names))
	return strings.Join(lines, "\n") + "\n"
}

// IsSpam draws whether the next test document is spam with the given ratio
func (g *Generator) IsSpam(ratio float64) bool {
	return g.rand.Float64() < ratio
}

func (g *Generator) pick(items []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = g.choice(items)
	}
	return out
}

func (g *Generator) choice(items []string) string {
	return items[g.rand.Intn(len(items))]
}

// WriteSet writes the documents of p into dir, producing each with next
func WriteSet(dir, suffix string, p Pattern, next func() string) error {
	for _, path := range p.Paths(dir, suffix) {
		if err := os.WriteFile(path, []byte(next()), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// Package intent labels the communicative purpose of a chat message using an
// ordered table of pattern rules.
package intent

import (
	"regexp"
	"strings"
)

// Intent labels.
const (
	Question     = "question"
	Complaint    = "complaint"
	Insult       = "insult"
	Threat       = "threat"
	Positive     = "positive"
	Disagreement = "disagreement"
	Neutral      = "neutral"
)

// NeutralConfidence is reported when no label matches. It is fixed, not computed.
const NeutralConfidence = 0.5

// Rule is a single matcher applied to lower-cased, trimmed text.
type Rule struct {
	re *regexp.Regexp
}

// MustRule compiles pattern into a Rule and panics on invalid syntax.
func MustRule(pattern string) Rule {
	return Rule{re: regexp.MustCompile(pattern)}
}

// Match reports whether the rule matches text.
func (r Rule) Match(text string) bool {
	return r.re.MatchString(text)
}

// Label pairs an intent name with its rules.
type Label struct {
	Name  string
	Rules []Rule
}

// Classifier scores text against an ordered label table. When two labels score
// equally the one registered first wins.
type Classifier struct {
	labels []Label
}

// New returns a classifier with the built-in label table.
func New() *Classifier {
	return NewWithLabels(defaultLabels())
}

// NewWithLabels returns a classifier over a custom table. Order matters for ties.
// Labels without rules (including Neutral) never score.
func NewWithLabels(labels []Label) *Classifier {
	cp := make([]Label, len(labels))
	copy(cp, labels)
	return &Classifier{labels: cp}
}

// Classify returns the best matching label and its confidence in [0,1].
// Unmatched input yields (Neutral, NeutralConfidence).
func (c *Classifier) Classify(text string) (string, float64) {
	normalized := strings.ToLower(strings.TrimSpace(text))

	best := ""
	bestScore := 0.0
	for _, label := range c.labels {
		if label.Name == Neutral || len(label.Rules) == 0 {
			continue
		}
		score := label.score(normalized)
		// strict comparison keeps the earliest label on ties
		if score > bestScore {
			best = label.Name
			bestScore = score
		}
	}

	if best == "" {
		return Neutral, NeutralConfidence
	}
	return best, min(bestScore, 1.0)
}

// Scores returns the per-label scores for text, omitting labels that did not match.
func (c *Classifier) Scores(text string) map[string]float64 {
	normalized := strings.ToLower(strings.TrimSpace(text))
	out := make(map[string]float64)
	for _, label := range c.labels {
		if label.Name == Neutral || len(label.Rules) == 0 {
			continue
		}
		if s := label.score(normalized); s > 0 {
			out[label.Name] = s
		}
	}
	return out
}

func (l Label) score(text string) float64 {
	matches := 0
	for _, r := range l.Rules {
		if r.Match(text) {
			matches++
		}
	}
	return float64(matches) / float64(len(l.Rules))
}

var explanations = map[string]string{
	Question:     "User is asking a question or seeking information",
	Complaint:    "User is expressing dissatisfaction or reporting an issue",
	Insult:       "User is using insulting or disrespectful language",
	Threat:       "User is making threatening statements",
	Positive:     "User is expressing positive sentiment or gratitude",
	Disagreement: "User is disagreeing or challenging a statement",
	Neutral:      "User is making a neutral statement or observation",
}

// Explain returns a human-readable description of an intent label.
func Explain(label string) string {
	if e, ok := explanations[label]; ok {
		return e
	}
	return "Unknown intent"
}

func defaultLabels() []Label {
	return []Label{
		{Name: Question, Rules: []Rule{
			MustRule(`\?$`),
			MustRule(`^(what|when|where|who|why|how|which|can|could|would|should|is|are|do|does)`),
			MustRule(`(help|explain|clarify|tell me|show me)`),
		}},
		{Name: Complaint, Rules: []Rule{
			MustRule(`(don't|dont|never|always|terrible|awful|worst|hate|sick of)`),
			MustRule(`(problem|issue|bug|error|broken|not working|doesn't work)`),
			MustRule(`(disappointed|frustrated|angry|annoyed)`),
		}},
		{Name: Insult, Rules: []Rule{
			MustRule(`(stupid|idiot|dumb|fool|moron|loser|pathetic)`),
			MustRule(`(shut up|get lost|screw you)`),
			MustRule(`(nobody cares|no one asked|nobody asked)`),
		}},
		{Name: Threat, Rules: []Rule{
			MustRule(`(i'll|ill|gonna|going to).*(kill|hurt|destroy|ruin|attack)`),
			MustRule(`(watch out|you'll regret|you're dead|you're done)`),
		}},
		{Name: Positive, Rules: []Rule{
			MustRule(`(thank|thanks|appreciate|grateful|awesome|great|excellent|amazing|love)`),
			MustRule(`(good job|well done|nice|perfect|fantastic|wonderful)`),
			MustRule(`(😊|😄|😁|👍|❤️|💯)`),
		}},
		{Name: Disagreement, Rules: []Rule{
			MustRule(`(i disagree|don't agree|wrong|incorrect|that's not)`),
			MustRule(`(actually|in fact|to be honest|honestly)`),
			MustRule(`(but|however|although)`),
		}},
		{Name: Neutral},
	}
}

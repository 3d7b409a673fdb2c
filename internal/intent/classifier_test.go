package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name       string
		text       string
		wantLabel  string
		wantConfid float64
	}{
		{"insult two of three rules", "you are so stupid, shut up", Insult, 2.0 / 3.0},
		{"question mark and interrogative", "What time is it?", Question, 2.0 / 3.0},
		{"threat", "I'm going to destroy you", Threat, 0.5},
		{"positive saturates", "thank you, well done 👍", Positive, 1.0},
		{"empty text", "", Neutral, NeutralConfidence},
		{"whitespace only", "   \t ", Neutral, NeutralConfidence},
		{"plain statement", "the sky looks blue today", Neutral, NeutralConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, conf := c.Classify(tt.text)
			assert.Equal(t, tt.wantLabel, label)
			assert.InDelta(t, tt.wantConfid, conf, 1e-9)
		})
	}
}

func TestClassifyTieGoesToFirstRegistered(t *testing.T) {
	first := Label{Name: "first", Rules: []Rule{MustRule(`x`)}}
	second := Label{Name: "second", Rules: []Rule{MustRule(`x`)}}

	label, conf := NewWithLabels([]Label{first, second}).Classify("x marks the spot")
	require.Equal(t, "first", label)
	require.Equal(t, 1.0, conf)

	label, _ = NewWithLabels([]Label{second, first}).Classify("x marks the spot")
	require.Equal(t, "second", label)
}

func TestClassifyBuiltInTieOrder(t *testing.T) {
	// complaint (hate) and positive (love) both score 1/3; complaint is registered first.
	label, conf := New().Classify("i hate that i love it")
	assert.Equal(t, Complaint, label)
	assert.InDelta(t, 1.0/3.0, conf, 1e-9)
}

func TestClassifyConfidenceBounded(t *testing.T) {
	c := New()
	inputs := []string{
		"", "?", "why?", "help me please, thanks!", "you idiot, nobody asked, shut up",
		"actually, i disagree but honestly that's not wrong", "👍😊💯", "watch out, i'll hurt you",
		"random words with no signal",
	}
	for _, in := range inputs {
		_, conf := c.Classify(in)
		assert.GreaterOrEqual(t, conf, 0.0, in)
		assert.LessOrEqual(t, conf, 1.0, in)
	}
}

func TestNeutralLabelNeverScores(t *testing.T) {
	c := NewWithLabels([]Label{{Name: Neutral, Rules: []Rule{MustRule(`.*`)}}})
	label, conf := c.Classify("anything")
	assert.Equal(t, Neutral, label)
	assert.Equal(t, NeutralConfidence, conf)
}

func TestScores(t *testing.T) {
	scores := New().Scores("you are so stupid, shut up")
	require.Len(t, scores, 1)
	assert.InDelta(t, 2.0/3.0, scores[Insult], 1e-9)
}

func TestExplain(t *testing.T) {
	assert.Equal(t, "User is using insulting or disrespectful language", Explain(Insult))
	assert.Equal(t, "User is making a neutral statement or observation", Explain(Neutral))
	assert.Equal(t, "Unknown intent", Explain("gibberish"))
}

package advisory

import "fmt"

// TonePrompt asks for a three-line tone verdict.
func TonePrompt(text string, toxicityScore float64, intent string) Prompt {
	user := fmt.Sprintf(`Analyze the tone of this message and classify it as one of: polite, neutral, rude, aggressive, passive-aggressive, or sarcastic.

Message: "%s"

Additional context:
- Toxicity score: %.2f
- Intent: %s

Respond in this exact format:
Tone: [tone]
Confidence: [0.0-1.0]
Explanation: [brief explanation]`, text, toxicityScore, intent)

	return Prompt{
		System:      "You are a communication expert analyzing message tone.",
		User:        user,
		Temperature: 0.3,
		MaxTokens:   150,
	}
}

// CoachingPrompt asks for short constructive feedback.
func CoachingPrompt(text, tone string, toxicityScore float64, intent string) Prompt {
	user := fmt.Sprintf(`You are a professional communication coach. A user sent this message:

"%s"

Analysis:
- Tone: %s
- Toxicity: %.2f
- Intent: %s

Provide brief, constructive coaching (2-3 sentences) on how to communicate more effectively. Be encouraging and specific.`, text, tone, toxicityScore, intent)

	return Prompt{
		System:      "You are a supportive communication coach providing constructive feedback.",
		User:        user,
		Temperature: 0.7,
		MaxTokens:   150,
	}
}

// RewritePrompt asks for a polite rewrite and nothing else.
func RewritePrompt(text string) Prompt {
	user := fmt.Sprintf(`Rewrite this message to be more polite, professional, and constructive while maintaining the core meaning:

Original: "%s"

Provide ONLY the rewritten message, nothing else.`, text)

	return Prompt{
		System:      "You are an expert at rephrasing messages to be more polite and professional.",
		User:        user,
		Temperature: 0.7,
		MaxTokens:   200,
	}
}

package narrator

import "context"

// Verdict is the narrator's judgement of one question against the active
// puzzle content.
type Verdict struct {
	Answer   string `json:"answer"` // yes | no | unrelated
	Score    int    `json:"score"`  // 1..10
	Feedback string `json:"feedback"`
	Progress int    `json:"progress"` // 0..100
	Hint     string `json:"hint,omitempty"`
}

// Client is the external narration collaborator. Implementations are
// fallible by contract; callers always have a fallback path.
type Client interface {
	Ask(ctx context.Context, question, content string) (Verdict, error)
}

// Fallback is the deterministic verdict substituted when the collaborator
// stays unreachable. The game continues; nobody is scored off a failure.
func Fallback() Verdict {
	return Verdict{
		Answer:   "unrelated",
		Score:    1,
		Feedback: "The narrator is momentarily lost in thought.",
		Progress: 0,
	}
}

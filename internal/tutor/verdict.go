package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"parlo/internal/llm"
)

// errMalformedVerdict marks model output that could not be salvaged into a
// complete verdict.
var errMalformedVerdict = errors.New("tutor: malformed verdict output")

// Verdict is the tutoring model's judgment of one learner turn. The engine
// consumes only the boolean signals; grading itself stays local.
type Verdict struct {
	IsCorrect          bool   `json:"isCorrect"`
	Revealed           bool   `json:"revealed"`
	CanGrade           bool   `json:"canGrade"`
	Feedback           string `json:"feedback"`
	NormalizationNotes string `json:"normalizationNotes,omitempty"`
}

// fallbackFeedback is returned whenever the model is unreachable or its
// output cannot be parsed. The turn always produces a usable reply.
const fallbackFeedback = "I'm having trouble processing your response. Please try again."

func fallbackVerdict() *Verdict {
	return &Verdict{
		IsCorrect: false,
		Revealed:  false,
		CanGrade:  false,
		Feedback:  fallbackFeedback,
	}
}

// revealPatterns match explicit requests to reveal the card's answer.
// Help requests ("I don't know", "I'm stuck") intentionally do not match.
var revealPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\breveal\b.*\banswer\b`),
	regexp.MustCompile(`\bshow\b.*\bme\b.*\banswer\b`),
	regexp.MustCompile(`\btell\b.*\bme\b.*\banswer\b`),
	regexp.MustCompile(`\bgive\b.*\bme\b.*\banswer\b`),
	regexp.MustCompile(`\bjust\b.*\btell\b.*\bme\b`),
	regexp.MustCompile(`\bwhat\b.*\bis\b.*\bthe\b.*\banswer\b`),
}

// IsRevealRequest reports whether the message explicitly asks for the
// answer to be revealed.
func IsRevealRequest(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, p := range revealPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// fencedJSON extracts a JSON object from a markdown code block.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// embeddedJSON finds a flat JSON object anywhere in the text.
var embeddedJSON = regexp.MustCompile(`(?s)\{[^{}]*\}`)

// verdictSchema is the structured-output contract sent to the provider.
func verdictSchema() *llm.Schema {
	return &llm.Schema{
		Name:        "tutor-verdict",
		Description: "Tutoring judgment of a single learner turn",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"isCorrect": map[string]any{"type": "boolean"},
				"revealed":  map[string]any{"type": "boolean"},
				"canGrade":  map[string]any{"type": "boolean"},
				"feedback":  map[string]any{"type": "string"},
				"normalizationNotes": map[string]any{
					"type": []any{"string", "null"},
				},
			},
			"required":             []any{"isCorrect", "revealed", "canGrade", "feedback"},
			"additionalProperties": false,
		},
	}
}

// Judge produces verdicts by talking to the tutoring model. It never fails
// a turn: provider errors and malformed output degrade to a fallback
// verdict.
type Judge struct {
	provider  llm.Provider
	logger    *zap.Logger
	maxTokens int
}

// NewJudge creates a Judge over the given provider.
func NewJudge(provider llm.Provider, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{
		provider:  provider,
		logger:    logger,
		maxTokens: 1024,
	}
}

// CardVerdict judges a learner turn against the active card. history is the
// bounded session context; shouldReveal instructs the model to include the
// answer because the reveal threshold was reached.
func (j *Judge) CardVerdict(ctx context.Context, p Persona, front, back string, history []Message, message string, shouldReveal bool) *Verdict {
	req := llm.Request{
		System:    cardSystemPrompt(p, front, back, shouldReveal),
		Messages:  buildMessages(history, message),
		Schema:    verdictSchema(),
		MaxTokens: j.maxTokens,
	}
	return j.generate(llm.WithPurpose(ctx, "tutor-verdict"), req)
}

// FreeReply produces a conversational reply with no card in play. The
// verdict's grading signals are always false in free mode.
func (j *Judge) FreeReply(ctx context.Context, p Persona, history []Message, message string) *Verdict {
	req := llm.Request{
		System:    freeSystemPrompt(p),
		Messages:  buildMessages(history, message),
		Schema:    verdictSchema(),
		MaxTokens: j.maxTokens,
	}
	v := j.generate(llm.WithPurpose(ctx, "free-chat"), req)
	v.IsCorrect = false
	v.Revealed = false
	v.CanGrade = false
	return v
}

func (j *Judge) generate(ctx context.Context, req llm.Request) *Verdict {
	resp, err := j.provider.Generate(ctx, req)
	if err != nil {
		j.logger.Warn("verdict generation failed, degrading",
			zap.Error(err))
		return fallbackVerdict()
	}

	v, err := parseVerdict(resp.Content)
	if err != nil {
		j.logger.Warn("verdict unparsable, degrading",
			zap.Error(err),
			zap.Int("contentLen", len(resp.Content)))
		return fallbackVerdict()
	}
	return v
}

func buildMessages(history []Message, current string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: current})
}

// parseVerdict parses model output into a Verdict. Salvage order: direct
// JSON, then a fenced code block, then any embedded object. Output missing
// the required fields is rejected rather than half-filled.
func parseVerdict(raw json.RawMessage) (*Verdict, error) {
	if v, err := decodeVerdict(raw); err == nil {
		return v, nil
	}

	if m := fencedJSON.FindSubmatch(raw); m != nil {
		if v, err := decodeVerdict(m[1]); err == nil {
			return v, nil
		}
	}

	if m := embeddedJSON.Find(raw); m != nil {
		if v, err := decodeVerdict(m); err == nil {
			return v, nil
		}
	}

	return nil, errMalformedVerdict
}

func decodeVerdict(data []byte) (*Verdict, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, key := range []string{"isCorrect", "revealed", "canGrade", "feedback"} {
		if _, ok := fields[key]; !ok {
			return nil, errMalformedVerdict
		}
	}

	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

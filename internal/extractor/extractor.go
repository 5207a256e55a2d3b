// Package extractor classifies free-text chat messages into structured
// workflow events. The generative classifier sits in a best-effort chat
// turn, so extraction failures are swallowed and reported as "not a
// workflow event" rather than propagated.
package extractor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muturi/chatbridge/model"
)

// Classification is the classifier's closed output schema. Reasoning is
// always present, including for negative classifications.
type Classification struct {
	IsWorkflowEvent bool           `json:"isWorkflowEvent"`
	EventType       string         `json:"eventType,omitempty"`
	Source          string         `json:"source,omitempty"`
	Priority        string         `json:"priority,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Reasoning       string         `json:"reasoning"`
}

// Classifier performs generative classification of a user message. The text
// generation pipeline behind it is an external collaborator.
type Classifier interface {
	Classify(ctx context.Context, userMessage, chatContext string) (Classification, error)
}

// Extractor wraps a Classifier with the swallow-on-failure policy. With
// Prescreen set, messages without any workflow vocabulary are rejected
// before the generative call; left unset, every message reaches the
// classifier, which is the authority on what counts as an event.
type Extractor struct {
	classifier Classifier
	logger     *zap.Logger
	now        func() time.Time

	// Prescreen gates extraction on DetectWorkflowKeywords. It trades
	// classifier calls for misses on vocabulary the keyword list lacks.
	Prescreen bool
}

// New creates an Extractor. A nil classifier degrades every extraction to a
// negative classification.
func New(classifier Classifier, logger *zap.Logger) *Extractor {
	return &Extractor{
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Extract classifies a user message. On any classifier failure (transport
// error, malformed output) it returns a negative classification with
// reasoning "extraction error" — never an error.
func (e *Extractor) Extract(ctx context.Context, userMessage, chatContext string) Classification {
	if e.Prescreen && !DetectWorkflowKeywords(userMessage) {
		return Classification{Reasoning: "no workflow indicators in message"}
	}
	if e.classifier == nil {
		return Classification{Reasoning: "extraction error"}
	}

	c, err := e.classifier.Classify(ctx, userMessage, chatContext)
	if err != nil {
		e.logger.Warn("event extraction failed, treating as non-event", zap.Error(err))
		return Classification{Reasoning: "extraction error"}
	}

	if c.Reasoning == "" {
		c.Reasoning = "no reasoning provided"
	}
	if c.Priority != "" && !model.ValidPriority(c.Priority) {
		e.logger.Debug("dropping invalid priority from classifier", zap.String("priority", c.Priority))
		c.Priority = ""
	}
	return c
}

// CreateEvent folds a positive classification plus message context into the
// canonical workflow event. Returns nil when the classification is
// negative. The timestamp is always stamped here.
func (e *Extractor) CreateEvent(c Classification, userMessage, chatID, userID string) *model.WorkflowEvent {
	if !c.IsWorkflowEvent {
		return nil
	}

	return &model.WorkflowEvent{
		EventType: c.EventType,
		Source:    c.Source,
		Message:   userMessage,
		Priority:  c.Priority,
		Metadata:  c.Metadata,
		ChatID:    chatID,
		UserID:    userID,
		Timestamp: e.now().UTC(),
	}
}

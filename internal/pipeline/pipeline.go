// Package pipeline runs captured content through classification,
// extraction, destination analysis, and the adaptive write.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"pagescribe/internal/automation"
	"pagescribe/internal/classify"
	"pagescribe/internal/creds"
	"pagescribe/internal/extract"
	"pagescribe/internal/format"
	"pagescribe/internal/summarize"
	"pagescribe/internal/writer"
)

// ExtractionKind says how much of the page the capture carries.
type ExtractionKind string

const (
	KindViewed      ExtractionKind = "viewed"
	KindFullArticle ExtractionKind = "full_article"
)

// Content is one capture handed to the pipeline.
type Content struct {
	URL       string         `json:"url"`
	Title     string         `json:"title"`
	Timestamp string         `json:"timestamp"`
	Text      string         `json:"text"`
	Kind      ExtractionKind `json:"kind,omitempty"`
}

func (c Content) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("content url is required")
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.New("content text is required")
	}
	switch c.Kind {
	case KindViewed, KindFullArticle, "":
	default:
		return errors.New("unknown extraction kind " + string(c.Kind))
	}
	return nil
}

// Processing states, reported in logs as the capture advances.
const (
	StateClassifying = "classifying"
	StateExtracting  = "extracting"
	StateAnalyzing   = "analyzing"
	StateWriting     = "writing"
	StateDone        = "done"
)

// Result is the terminal report for one capture against one automation.
type Result struct {
	Relevant        bool              `json:"relevant"`
	Stored          bool              `json:"stored"`
	ExtractedFields map[string]string `json:"extractedFields,omitempty"`
	StorageKind     string            `json:"storageKind,omitempty"`
	StorageRef      string            `json:"storageRef,omitempty"`
	Message         string            `json:"message,omitempty"`
}

// Coordinator owns the stage ordering and the failure taxonomy. Stages are
// strictly sequential; a failed stage stops the capture.
type Coordinator struct {
	Classifier *classify.Classifier
	Extractor  *extract.Extractor
	Summarizer *summarize.Summarizer
	Analyzer   *format.Analyzer
	Writer     *writer.Writer
	Creds      creds.Provider
	Log        *zap.Logger
}

func (co *Coordinator) logger() *zap.Logger {
	if co.Log == nil {
		return zap.NewNop()
	}
	return co.Log
}

// ProcessContent runs one capture through the full pipeline for a single
// automation. Irrelevant content short-circuits before extraction. A user
// without storage credentials still gets their extraction back, with
// Stored false, so the capture is not silently lost.
func (co *Coordinator) ProcessContent(ctx context.Context, content Content, auto automation.Descriptor, userID string) (Result, error) {
	if err := content.Validate(); err != nil {
		return Result{}, fail(ErrValidation, err)
	}
	if err := auto.Validate(); err != nil {
		return Result{}, fail(ErrValidation, err)
	}

	log := co.logger().With(
		zap.String("automation", auto.ID),
		zap.String("url", content.URL),
	)
	started := time.Now()

	log.Debug("pipeline stage", zap.String("state", StateClassifying))
	relevant, err := co.Classifier.Classify(ctx, content.Text, auto.Title, auto.ExtractFields)
	if err != nil {
		return Result{}, fail(ErrModel, err)
	}
	if !relevant {
		log.Info("content not relevant", zap.Duration("elapsed", time.Since(started)))
		return Result{Relevant: false, Message: "content not relevant to automation"}, nil
	}

	log.Debug("pipeline stage", zap.String("state", StateExtracting))
	extracted, err := co.Extractor.Extract(ctx, content.Text, auto.ExtractFields)
	if err != nil {
		return Result{}, fail(ErrModel, err)
	}

	if co.Creds != nil {
		if _, err := co.Creds.AccessToken(ctx, userID); err != nil {
			if errors.Is(err, creds.ErrUnauthenticated) {
				log.Warn("user not authenticated, returning extraction unstored")
				return Result{
					Relevant:        true,
					ExtractedFields: extracted.Fields,
					Stored:          false,
					Message:         "storage account not connected, data extracted but not stored",
				}, nil
			}
			return Result{}, fail(ErrAuthentication, err)
		}
	}

	log.Debug("pipeline stage", zap.String("state", StateAnalyzing))
	analysis, err := co.analyze(ctx, auto.Destination)
	if err != nil {
		return Result{}, err
	}

	log.Debug("pipeline stage", zap.String("state", StateWriting))
	timestamp := content.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	outcome, err := co.Writer.Write(ctx, analysis, extracted, writer.Meta{
		AutomationTitle: auto.Title,
		URL:             content.URL,
		Timestamp:       timestamp,
	})
	if err != nil {
		return Result{}, fail(ErrProvider, err)
	}

	log.Info("capture stored",
		zap.String("state", StateDone),
		zap.String("kind", outcome.Kind),
		zap.Duration("elapsed", time.Since(started)),
	)
	return Result{
		Relevant:        true,
		Stored:          outcome.Stored,
		ExtractedFields: extracted.Fields,
		StorageKind:     outcome.Kind,
		StorageRef:      outcome.Ref,
		Message:         "data stored",
	}, nil
}

// MatchAutomations filters a user's automations down to the active ones
// whose source patterns cover the capture's URL.
func MatchAutomations(autos []automation.Descriptor, rawURL string) []automation.Descriptor {
	var out []automation.Descriptor
	for _, a := range autos {
		if !a.Active {
			continue
		}
		if a.MatchesURL(rawURL) {
			out = append(out, a)
		}
	}
	return out
}

package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"pagescribe/internal/automation"
	"pagescribe/internal/drive"
	"pagescribe/internal/extract"
	"pagescribe/internal/format"
	"pagescribe/internal/summarize"
	"pagescribe/internal/writer"
)

// LogData stores already-extracted field data, skipping classification
// and extraction. Clients that did their own extraction use this to land
// the result in the destination with the same adaptive write.
func (co *Coordinator) LogData(ctx context.Context, auto automation.Descriptor, extracted *extract.Result, url, timestamp, userID string) (Result, error) {
	if extracted == nil || len(extracted.Order) == 0 {
		return Result{}, fail(ErrValidation, errors.New("no field data to log"))
	}
	if auto.Destination.Empty() {
		return Result{}, fail(ErrValidation, errors.New("automation has no destination"))
	}
	if err := co.authorize(ctx, userID); err != nil {
		return Result{}, err
	}

	analysis, err := co.analyze(ctx, auto.Destination)
	if err != nil {
		return Result{}, err
	}
	outcome, err := co.Writer.Write(ctx, analysis, extracted, writer.Meta{
		AutomationTitle: auto.Title,
		URL:             url,
		Timestamp:       defaultTimestamp(timestamp),
	})
	if err != nil {
		return Result{}, fail(ErrProvider, err)
	}
	co.logger().Info("logged pre-extracted data",
		zap.String("automation", auto.ID),
		zap.String("kind", outcome.Kind),
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

// Article is a read page handed over for summarization.
type Article struct {
	Title       string
	URL         string
	Content     string
	Timestamp   string
	ReadPercent int
}

func (a Article) validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return errors.New("article title is required")
	}
	if strings.TrimSpace(a.URL) == "" {
		return errors.New("article url is required")
	}
	if strings.TrimSpace(a.Content) == "" {
		return errors.New("article content is required")
	}
	return nil
}

// StoreSummary condenses a read article into the target destination. A
// spreadsheet target gets fields extracted against its headers; documents
// and flat text get a delimited summary block.
func (co *Coordinator) StoreSummary(ctx context.Context, article Article, target automation.Destination, userID string) (Result, error) {
	if err := article.validate(); err != nil {
		return Result{}, fail(ErrValidation, err)
	}
	if target.Empty() {
		return Result{}, fail(ErrValidation, errors.New("target destination is required"))
	}
	if err := co.authorize(ctx, userID); err != nil {
		return Result{}, err
	}

	analysis, err := co.analyze(ctx, target)
	if err != nil {
		return Result{}, err
	}
	timestamp := defaultTimestamp(article.Timestamp)

	if analysis.Sheet != nil {
		fieldSpec := strings.Join(analysis.Sheet.Headers, ", ")
		if fieldSpec == "" {
			fieldSpec = "title, summary"
		}
		extracted, err := co.Extractor.Extract(ctx, article.Content, fieldSpec)
		if err != nil {
			return Result{}, fail(ErrModel, err)
		}
		outcome, err := co.Writer.Write(ctx, analysis, extracted, writer.Meta{
			AutomationTitle: "Article Summary",
			URL:             article.URL,
			Timestamp:       timestamp,
		})
		if err != nil {
			return Result{}, fail(ErrProvider, err)
		}
		return Result{
			Relevant:        true,
			Stored:          outcome.Stored,
			ExtractedFields: extracted.Fields,
			StorageKind:     outcome.Kind,
			StorageRef:      outcome.Ref,
			Message:         "summary stored",
		}, nil
	}

	summary, err := co.Summarizer.Summarize(ctx, article.Title, article.URL, article.Content, article.ReadPercent)
	if err != nil {
		return Result{}, fail(ErrModel, err)
	}
	entry := summarize.Entry(article.Title, article.URL, timestamp, article.ReadPercent, summary)
	outcome, err := co.Writer.AppendEntry(ctx, analysis, entry)
	if err != nil {
		return Result{}, fail(ErrProvider, err)
	}
	co.logger().Info("summary stored",
		zap.String("url", article.URL),
		zap.String("kind", outcome.Kind),
	)
	return Result{
		Relevant:    true,
		Stored:      outcome.Stored,
		StorageKind: outcome.Kind,
		StorageRef:  outcome.Ref,
		Message:     "summary stored",
	}, nil
}

// authorize requires storage credentials. Unlike ProcessContent, the
// direct endpoints have nothing useful to return unstored, so a missing
// connection is an authentication failure.
func (co *Coordinator) authorize(ctx context.Context, userID string) error {
	if co.Creds == nil {
		return nil
	}
	if _, err := co.Creds.AccessToken(ctx, userID); err != nil {
		return fail(ErrAuthentication, err)
	}
	return nil
}

func (co *Coordinator) analyze(ctx context.Context, dest automation.Destination) (*format.Analysis, error) {
	analysis, err := co.Analyzer.Analyze(ctx, dest)
	if err != nil {
		if errors.Is(err, drive.ErrNotFound) {
			return nil, fail(ErrDestinationNotFound, err)
		}
		return nil, fail(ErrProvider, err)
	}
	return analysis, nil
}

func defaultTimestamp(ts string) string {
	if ts != "" {
		return ts
	}
	return time.Now().UTC().Format(time.RFC3339)
}

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pagescribe/internal/automation"
	"pagescribe/internal/classify"
	"pagescribe/internal/creds"
	"pagescribe/internal/drive"
	"pagescribe/internal/extract"
	"pagescribe/internal/format"
	"pagescribe/internal/llm"
	"pagescribe/internal/mapper"
	"pagescribe/internal/summarize"
	"pagescribe/internal/writer"
)

// router answers each pipeline stage by recognizing its prompt shape.
type router struct {
	classifyReply string
	classifyErr   error
	extractReply  string
	extractErr    error
	mapReply      string
	summaryReply  string

	classifyCalls int
	extractCalls  int
	mapCalls      int
	summaryCalls  int
}

func (r *router) Name() string  { return "router" }
func (r *router) Model() string { return "router" }

func (r *router) Generate(_ context.Context, prompt string, _ llm.Options) (string, error) {
	switch {
	case strings.Contains(prompt, "intent classifier"):
		r.classifyCalls++
		return r.classifyReply, r.classifyErr
	case strings.Contains(prompt, "Extract the following fields"):
		r.extractCalls++
		return r.extractReply, r.extractErr
	case strings.Contains(prompt, "data mapping assistant"):
		r.mapCalls++
		return r.mapReply, nil
	case strings.Contains(prompt, "concise summary"):
		r.summaryCalls++
		return r.summaryReply, nil
	}
	return "", errors.New("unrecognized prompt")
}

// spy counts provider calls on the paths the pipeline exercises.
type spy struct {
	*drive.Memory
	calls int
}

func (s *spy) Resolve(ctx context.Context, name string) (drive.ObjectRef, error) {
	s.calls++
	return s.Memory.Resolve(ctx, name)
}

func (s *spy) Lookup(ctx context.Context, id string) (drive.ObjectRef, error) {
	s.calls++
	return s.Memory.Lookup(ctx, id)
}

func (s *spy) ReadGrid(ctx context.Context, ref drive.ObjectRef) ([][]string, error) {
	s.calls++
	return s.Memory.ReadGrid(ctx, ref)
}

func (s *spy) AppendRow(ctx context.Context, ref drive.ObjectRef, row []string) error {
	s.calls++
	return s.Memory.AppendRow(ctx, ref, row)
}

func newCoordinator(client llm.Client, provider drive.Provider, cp creds.Provider) *Coordinator {
	return &Coordinator{
		Classifier: classify.New(client),
		Extractor:  extract.New(client),
		Summarizer: summarize.New(client),
		Analyzer:   format.NewAnalyzer(provider),
		Writer:     writer.New(provider, mapper.New(client, nil)),
		Creds:      cp,
	}
}

func jobAutomation(dest automation.Destination) automation.Descriptor {
	return automation.Descriptor{
		ID:            "auto-1",
		OwnerID:       "u1",
		Title:         "Job Tracker",
		Sources:       "example.com",
		ExtractFields: "job title, company",
		Destination:   dest,
		Active:        true,
	}
}

func capture() Content {
	return Content{
		URL:       "https://example.com/jobs/42",
		Title:     "Backend Engineer at Acme",
		Timestamp: "2026-03-01T10:00:00Z",
		Text:      "Acme Corp is hiring a Backend Engineer.",
		Kind:      KindViewed,
	}
}

func TestProcessContentHappyPathSheet(t *testing.T) {
	mem := drive.NewMemory()
	ref := mem.SeedSheet("Jobs", [][]string{
		{"Title", "Company"},
		{"SRE", "Globex"},
	})
	client := &router{
		classifyReply: "YES",
		extractReply:  `{"jobTitle": "Backend Engineer", "company": "Acme Corp"}`,
		mapReply:      `["Backend Engineer", "Acme Corp"]`,
	}
	co := newCoordinator(client, mem, creds.Static{})

	result, err := co.ProcessContent(context.Background(), capture(), jobAutomation(automation.Destination{ID: ref.ID}), "u1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Relevant || !result.Stored {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.StorageKind != "sheet" || result.StorageRef != ref.ID {
		t.Fatalf("unexpected storage report: %+v", result)
	}
	if result.ExtractedFields["jobTitle"] != "Backend Engineer" {
		t.Fatalf("extracted fields missing: %+v", result.ExtractedFields)
	}
	rows, _ := mem.ReadGrid(context.Background(), ref)
	if len(rows) != 3 {
		t.Fatalf("expected appended row, got %d rows", len(rows))
	}
}

func TestProcessContentIrrelevantShortCircuits(t *testing.T) {
	mem := drive.NewMemory()
	client := &router{classifyReply: "NO"}
	co := newCoordinator(client, mem, creds.Static{})

	result, err := co.ProcessContent(context.Background(), capture(), jobAutomation(automation.Destination{Name: "Jobs"}), "u1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Relevant || result.Stored {
		t.Fatalf("irrelevant content must not advance: %+v", result)
	}
	if client.extractCalls != 0 || client.mapCalls != 0 {
		t.Fatalf("downstream stages ran: extract=%d map=%d", client.extractCalls, client.mapCalls)
	}
}

func TestProcessContentModelFailureTouchesNoStorage(t *testing.T) {
	mem := drive.NewMemory()
	provider := &spy{Memory: mem}
	client := &router{classifyErr: errors.New("dial tcp 127.0.0.1:11434: connection refused")}
	co := newCoordinator(client, provider, creds.Static{})

	_, err := co.ProcessContent(context.Background(), capture(), jobAutomation(automation.Destination{Name: "Jobs"}), "u1")
	if !errors.Is(err, ErrModel) {
		t.Fatalf("expected model error, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("storage touched despite model failure: %d calls", provider.calls)
	}
}

func TestProcessContentUnauthenticatedKeepsExtraction(t *testing.T) {
	mem := drive.NewMemory()
	provider := &spy{Memory: mem}
	client := &router{
		classifyReply: "YES",
		extractReply:  `{"jobTitle": "Backend Engineer", "company": "Acme Corp"}`,
	}
	store := &staticStore{err: creds.ErrUnauthenticated}
	co := newCoordinator(client, provider, creds.NewStoreProvider(store, nil))

	result, err := co.ProcessContent(context.Background(), capture(), jobAutomation(automation.Destination{Name: "Jobs"}), "u1")
	if err != nil {
		t.Fatalf("unauthenticated user must not be an error: %v", err)
	}
	if !result.Relevant || result.Stored {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.ExtractedFields["company"] != "Acme Corp" {
		t.Fatalf("extraction lost: %+v", result.ExtractedFields)
	}
	if provider.calls != 0 {
		t.Fatalf("storage touched without credentials: %d calls", provider.calls)
	}
}

type staticStore struct{ err error }

func (s *staticStore) SaveToken(context.Context, string, creds.Token) error { return s.err }

func (s *staticStore) GetToken(context.Context, string) (creds.Token, error) {
	return creds.Token{}, s.err
}

func TestProcessContentDanglingDestinationID(t *testing.T) {
	mem := drive.NewMemory()
	client := &router{
		classifyReply: "YES",
		extractReply:  `{"company": "Acme Corp"}`,
	}
	co := newCoordinator(client, mem, creds.Static{})

	_, err := co.ProcessContent(context.Background(), capture(), jobAutomation(automation.Destination{ID: "gone"}), "u1")
	if !errors.Is(err, ErrDestinationNotFound) {
		t.Fatalf("expected destination-not-found, got %v", err)
	}
}

func TestProcessContentRejectsInvalidInput(t *testing.T) {
	co := newCoordinator(&router{}, drive.NewMemory(), creds.Static{})

	_, err := co.ProcessContent(context.Background(), Content{URL: "https://example.com"}, jobAutomation(automation.Destination{Name: "Jobs"}), "u1")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}

	bad := jobAutomation(automation.Destination{})
	_, err = co.ProcessContent(context.Background(), capture(), bad, "u1")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty destination, got %v", err)
	}
}

func TestMatchAutomationsFiltersInactiveAndForeignDomains(t *testing.T) {
	autos := []automation.Descriptor{
		{ID: "a", Sources: "example.com", Active: true},
		{ID: "b", Sources: "example.com", Active: false},
		{ID: "c", Sources: "other.org", Active: true},
	}
	matched := MatchAutomations(autos, "https://www.example.com/jobs")
	if len(matched) != 1 || matched[0].ID != "a" {
		t.Fatalf("unexpected matches: %+v", matched)
	}
}

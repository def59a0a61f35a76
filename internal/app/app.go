package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pagescribe/internal/automation"
	"pagescribe/internal/classify"
	"pagescribe/internal/config"
	"pagescribe/internal/creds"
	"pagescribe/internal/drive"
	"pagescribe/internal/extract"
	"pagescribe/internal/format"
	"pagescribe/internal/llm"
	"pagescribe/internal/mapper"
	"pagescribe/internal/observability"
	"pagescribe/internal/pipeline"
	"pagescribe/internal/queue"
	"pagescribe/internal/store"
	"pagescribe/internal/summarize"
	"pagescribe/internal/writer"
)

type App struct {
	Config      config.Config
	Log         *zap.Logger
	Store       *store.Store
	Queue       *queue.Queue
	Provider    drive.Provider
	LLM         llm.Client
	Creds       creds.Provider
	Automations automation.Repository
	Coordinator *pipeline.Coordinator
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("run_id", observability.NewRunID()))

	a := &App{Config: cfg, Log: logger}

	if cfg.Database.DSN != "" {
		st, err := store.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx, st.DB()); err != nil {
			return nil, err
		}
		a.Store = st
	}

	if cfg.Redis.URL != "" {
		q, err := queue.New(cfg.Redis.URL, cfg.Redis.Queue)
		if err != nil {
			return nil, err
		}
		a.Queue = q
	}

	base := selectLLM(cfg)
	a.LLM = llm.WithPolicy(base, cfg.LLM.Timeout, cfg.LLM.RetryAttempts, cfg.LLM.RetryBackoff)
	logger.Info("llm ready", zap.String("provider", base.Name()), zap.String("model", base.Model()))

	// The in-process provider serves dev mode; a real storage backend
	// would slot in behind the same interface.
	a.Provider = drive.NewMemory()

	if a.Store != nil && !cfg.Dev.Mode {
		a.Creds = creds.NewStoreProvider(a.Store, nil)
		a.Automations = a.Store
	} else {
		a.Creds = creds.Static{}
		a.Automations = memoryRepository{}
	}

	a.Coordinator = &pipeline.Coordinator{
		Classifier: classify.New(a.LLM),
		Extractor:  extract.New(a.LLM),
		Summarizer: summarize.New(a.LLM),
		Analyzer:   format.NewAnalyzer(a.Provider),
		Writer:     writer.New(a.Provider, mapper.New(a.LLM, logger)),
		Creds:      a.Creds,
		Log:        logger,
	}
	return a, nil
}

func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	_ = a.Log.Sync()
	return err
}

func (a *App) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.Store != nil {
			if err := a.Store.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		if a.Queue != nil {
			if err := a.Queue.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/api/process-content", a.handleProcessContent)
	mux.HandleFunc("/api/log-automation", a.handleLogAutomation)
	mux.HandleFunc("/api/summarize-article", a.handleSummarizeArticle)
	mux.HandleFunc("/api/automations", a.handleAutomations)
	mux.HandleFunc("/api/automations/sync", a.handleAutomationSync)
	mux.HandleFunc("/api/captures", a.handleCaptures)

	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	a.Log.Info("http server listening", zap.String("addr", a.Config.HTTP.Addr))
	return srv.ListenAndServe()
}

// WorkerLoop drains queued captures and runs each through the pipeline.
// Failed jobs are logged and dropped; the capture log records the miss.
func (a *App) WorkerLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		job, err := a.Queue.PopCapture(ctx, 5*time.Second)
		if err != nil {
			continue
		}
		a.processJob(ctx, job)
	}
}

func (a *App) processJob(ctx context.Context, job queue.CaptureJob) {
	auto, err := a.lookupAutomation(ctx, job)
	if err != nil {
		a.Log.Warn("queued capture has no automation",
			zap.String("automation", job.AutomationID), zap.Error(err))
		return
	}
	result, err := a.Coordinator.ProcessContent(ctx, job.Content, auto, job.OwnerID)
	if err != nil {
		a.Log.Error("queued capture failed", zap.String("url", job.Content.URL), zap.Error(err))
	}
	a.recordCapture(ctx, job.OwnerID, auto.ID, job.Content.URL, result, err)
}

func (a *App) lookupAutomation(ctx context.Context, job queue.CaptureJob) (automation.Descriptor, error) {
	if a.Store != nil {
		return a.Store.GetAutomation(ctx, job.AutomationID)
	}
	autos, err := a.Automations.GetAutomations(ctx, job.OwnerID)
	if err != nil {
		return automation.Descriptor{}, err
	}
	for _, auto := range autos {
		if auto.ID == job.AutomationID {
			return auto, nil
		}
	}
	return automation.Descriptor{}, drive.ErrNotFound
}

func (a *App) recordCapture(ctx context.Context, ownerID, automationID, url string, result pipeline.Result, runErr error) {
	if a.Store == nil {
		return
	}
	message := result.Message
	if runErr != nil {
		message = runErr.Error()
	}
	_, err := a.Store.RecordCapture(ctx, store.Capture{
		OwnerID:      ownerID,
		AutomationID: automationID,
		URL:          url,
		Relevant:     result.Relevant,
		Stored:       result.Stored,
		StorageKind:  result.StorageKind,
		StorageRef:   result.StorageRef,
		Message:      message,
	})
	if err != nil {
		a.Log.Warn("capture audit write failed", zap.Error(err))
	}
}

// memoryRepository is the dev-mode automation source: nothing persisted,
// automations arrive inline with each process-content request.
type memoryRepository struct{}

func (memoryRepository) GetAutomations(context.Context, string) ([]automation.Descriptor, error) {
	return nil, nil
}

func selectLLM(cfg config.Config) llm.Client {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.OpenAIKey != "" {
			return llm.NewOpenAI(cfg.LLM.OpenAIKey, cfg.LLM.Model)
		}
	case "ollama":
		if cfg.LLM.OllamaURL != "" {
			return llm.NewOllama(cfg.LLM.OllamaURL, cfg.LLM.Model)
		}
	}
	return llm.NewNoop()
}

package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"pagescribe/internal/automation"
	"pagescribe/internal/extract"
	"pagescribe/internal/pipeline"
	"pagescribe/internal/queue"
)

func queueJob(ownerID, automationID string, content pipeline.Content) queue.CaptureJob {
	return queue.CaptureJob{OwnerID: ownerID, AutomationID: automationID, Content: content}
}

type processRequest struct {
	UserID     string                  `json:"userId"`
	Automation processAutomation       `json:"automation"`
	Content    pipeline.Content        `json:"content"`
	Kind       pipeline.ExtractionKind `json:"extractionType"`
	Async      bool                    `json:"async"`
}

type processAutomation struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Sources         string `json:"sources"`
	Extract         string `json:"extract"`
	DestinationID   string `json:"destinationId"`
	DestinationName string `json:"destinationName"`
}

func (p processAutomation) descriptor(ownerID string) automation.Descriptor {
	return automation.Descriptor{
		ID:            p.ID,
		OwnerID:       ownerID,
		Title:         p.Title,
		Sources:       p.Sources,
		ExtractFields: p.Extract,
		Destination:   automation.Destination{ID: p.DestinationID, Name: p.DestinationName},
		Active:        true,
	}
}

func (a *App) handleProcessContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind != "" {
		req.Content.Kind = req.Kind
	}
	userID := req.UserID
	if userID == "" {
		userID = "dev"
	}
	auto := req.Automation.descriptor(userID)

	if req.Async && a.Queue != nil {
		job := queueJob(userID, auto.ID, req.Content)
		if err := a.Queue.PushCapture(r.Context(), job); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, map[string]any{"queued": true})
		return
	}

	result, err := a.Coordinator.ProcessContent(r.Context(), req.Content, auto, userID)
	a.recordCapture(r.Context(), userID, auto.ID, req.Content.URL, result, err)
	if err != nil {
		a.Log.Warn("process content failed", zap.String("url", req.Content.URL), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, result)
}

func (a *App) handleAutomations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ownerID := r.URL.Query().Get("userId")
	if ownerID == "" {
		ownerID = "dev"
	}
	autos, err := a.Automations.GetAutomations(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"automations": autos})
}

// handleAutomationSync replaces a user's automation set with the one the
// client holds, the push model the browser extension uses.
func (a *App) handleAutomationSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if a.Store == nil {
		writeError(w, http.StatusNotImplemented, "persistence disabled")
		return
	}
	var req struct {
		UserID      string              `json:"userId"`
		Automations []processAutomation `json:"automations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ownerID := req.UserID
	if ownerID == "" {
		ownerID = "dev"
	}
	autos := make([]automation.Descriptor, 0, len(req.Automations))
	for _, pa := range req.Automations {
		d := pa.descriptor(ownerID)
		if err := d.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		autos = append(autos, d)
	}
	if err := a.Store.ReplaceAutomations(r.Context(), ownerID, autos); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"synced": len(autos)})
}

// handleLogAutomation stores field data the client already extracted,
// going straight to destination analysis and the adaptive write.
func (a *App) handleLogAutomation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		UserID     string            `json:"userId"`
		Automation processAutomation `json:"automation"`
		URL        string            `json:"url"`
		Data       map[string]string `json:"data"`
		Timestamp  string            `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Automation.Title == "" || len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "automation and data are required")
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = "dev"
	}
	auto := req.Automation.descriptor(userID)

	// Map iteration order is random; sort so the entry layout is stable.
	keys := make([]string, 0, len(req.Data))
	for key := range req.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	extracted := extract.NewResult()
	for _, key := range keys {
		extracted.Set(key, req.Data[key])
	}

	result, err := a.Coordinator.LogData(r.Context(), auto, extracted, req.URL, req.Timestamp, userID)
	a.recordCapture(r.Context(), userID, auto.ID, req.URL, result, err)
	if err != nil {
		a.Log.Warn("log automation failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, result)
}

// handleSummarizeArticle condenses a read article into the named target
// file, matching whatever format the target already uses.
func (a *App) handleSummarizeArticle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		UserID           string `json:"userId"`
		Title            string `json:"title"`
		URL              string `json:"url"`
		Content          string `json:"content"`
		TargetFile       string `json:"targetFile"`
		ScrollPercentage int    `json:"scrollPercentage"`
		Timestamp        string `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetFile == "" {
		writeError(w, http.StatusBadRequest, "targetFile is required")
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = "dev"
	}
	article := pipeline.Article{
		Title:       req.Title,
		URL:         req.URL,
		Content:     req.Content,
		Timestamp:   req.Timestamp,
		ReadPercent: req.ScrollPercentage,
	}
	result, err := a.Coordinator.StoreSummary(r.Context(), article, automation.Destination{Name: req.TargetFile}, userID)
	if err != nil {
		a.Log.Warn("summarize article failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, result)
}

// handleCaptures enqueues a capture on POST and lists the audit log on GET.
func (a *App) handleCaptures(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		a.handleEnqueueCapture(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if a.Store == nil {
		writeError(w, http.StatusNotImplemented, "persistence disabled")
		return
	}
	ownerID := r.URL.Query().Get("userId")
	if ownerID == "" {
		ownerID = "dev"
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	captures, err := a.Store.ListCaptures(r.Context(), ownerID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"captures": captures})
}

func (a *App) handleEnqueueCapture(w http.ResponseWriter, r *http.Request) {
	if a.Queue == nil {
		writeError(w, http.StatusNotImplemented, "queue disabled")
		return
	}
	var req struct {
		UserID       string           `json:"userId"`
		AutomationID string           `json:"automationId"`
		Content      pipeline.Content `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Content.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = "dev"
	}
	if err := a.Queue.PushCapture(r.Context(), queueJob(userID, req.AutomationID, req.Content)); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"queued": true})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, pipeline.ErrDestinationNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrModel), errors.Is(err, pipeline.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the error contract every endpoint shares, a JSON body
// with a single "error" key.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

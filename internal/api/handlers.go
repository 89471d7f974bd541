package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/pipeline"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

const (
	maxDescriptionLen = 2000
	defaultUserID     = "anonymous"
)

type createTaskRequest struct {
	UserID      string `json:"user_id"`
	Description string `json:"description"`
}

// TaskDetail is the GET /tasks/{id} body.
type TaskDetail struct {
	model.Task
	Vendors  []model.Vendor       `json:"vendors"`
	Subtasks []model.Subtask      `json:"subtasks"`
	Analysis *model.FinalAnalysis `json:"analysis,omitempty"`
}

// phaseResponse is the body returned by a phase trigger.
type phaseResponse struct {
	Status string    `json:"status"`
	Data   phaseData `json:"data"`
}

type phaseData struct {
	Task   *model.Task           `json:"task"`
	Result *pipeline.PhaseResult `json:"result,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "stats not enabled")
		return
	}
	snap, err := s.stats.Collect(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	if len([]rune(req.Description)) > maxDescriptionLen {
		writeError(w, http.StatusBadRequest, "description exceeds "+strconv.Itoa(maxDescriptionLen)+" characters")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = defaultUserID
	}

	task, err := s.store.CreateTask(r.Context(), req.UserID, req.Description)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	zap.L().Info("api: task created", zap.String("task_id", task.ID), zap.String("user_id", task.UserID))
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TaskFilter{
		Status: model.TaskStatus(q.Get("status")),
		UserID: q.Get("user_id"),
	}
	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.BuildReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskDetail{
		Task:     report.Task,
		Vendors:  nonNil(report.Vendors),
		Subtasks: nonNil(report.Subtasks),
		Analysis: report.Analysis,
	})
}

func (s *Server) handleTriggerPhase(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown phase")
		return
	}
	phase, err := model.ParsePhase(n)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.trigger.Trigger(r.Context(), phase, taskID)
	if err != nil {
		phaseFailure(w, r, err)
		return
	}

	task, err := s.store.GetTask(r.Context(), taskID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	if out.TimedOut {
		writeJSON(w, http.StatusAccepted, phaseResponse{
			Status: "running",
			Data:   phaseData{Task: task},
		})
		return
	}
	writeJSON(w, http.StatusOK, phaseResponse{
		Status: "success",
		Data:   phaseData{Task: task, Result: out.Result},
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.BuildReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if report.Analysis == nil {
		writeError(w, http.StatusBadRequest, "Analysis not completed")
		return
	}
	report.Vendors = nonNil(report.Vendors)
	report.Subtasks = nonNil(report.Subtasks)
	report.Timelines = nonNil(report.Timelines)
	report.Mappings = nonNil(report.Mappings)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if _, err := s.store.GetTask(r.Context(), taskID); err != nil {
		writeFailure(w, r, err)
		return
	}
	mappings, err := s.store.ListMappings(r.Context(), taskID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(mappings))
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}
	vendors, err := s.store.ListVendors(r.Context(), taskID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(vendors))
}

func (s *Server) handleSubtasks(w http.ResponseWriter, r *http.Request) {
	taskID, ok := requireTaskID(w, r)
	if !ok {
		return
	}
	subtasks, err := s.store.ListSubtasks(r.Context(), taskID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(subtasks))
}

func requireTaskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("task_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return "", false
	}
	return id, true
}

func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

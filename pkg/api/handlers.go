package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.temporal.io/sdk/client"

	"github.com/getmaxun/maxun-sub002/pkg/capture"
	"github.com/getmaxun/maxun-sub002/pkg/database"
	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/models"
)

const TaskQueue = "selector-extraction"

// Handlers contains API handlers
type Handlers struct {
	db             *database.DB
	temporalClient client.Client
	upgrader       websocket.Upgrader
}

// NewHandlers creates new API handlers
func NewHandlers(db *database.DB, temporalClient client.Client) *Handlers {
	return &Handlers{
		db:             db,
		temporalClient: temporalClient,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ==================== Robot Handlers ====================

// ListRobots lists all stored robots
func (h *Handlers) ListRobots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	robots, err := h.db.ListRobots(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, robots)
}

// CreateRobot creates a robot from a capture payload: the flattened page
// snapshot plus the element path the user confirmed. The inference pipeline
// runs server-side and the resulting steps are persisted with the robot.
func (h *Handlers) CreateRobot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload models.CapturePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.HTML == "" || payload.AnchorPath == "" {
		http.Error(w, "Missing html or anchor_path", http.StatusBadRequest)
		return
	}

	snap, err := dom.Parse(payload.HTML, payload.BaseURL)
	if err != nil {
		http.Error(w, "Failed to parse snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}

	session := capture.NewSession(snap)
	_, fields, err := session.ConfirmList(payload.AnchorPath, payload.IsShadow)
	if err != nil {
		http.Error(w, "Capture failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	robot := &models.Robot{
		ID:        uuid.New().String(),
		Name:      payload.RobotName,
		TargetURL: payload.BaseURL,
	}
	if robot.Name == "" {
		robot.Name = "robot-" + robot.ID[:8]
	}

	steps := session.Steps(robot.ID)

	if h.db != nil {
		if err := h.db.CreateRobot(ctx, robot); err != nil {
			http.Error(w, "Failed to create robot: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err := h.db.CreateRobotSteps(ctx, robot.ID, steps); err != nil {
			http.Error(w, "Failed to store steps: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	robot.Steps = steps

	respondJSON(w, map[string]interface{}{
		"robot":  robot,
		"fields": fields,
	})
}

// InferFields runs the inference pipeline on a capture payload without
// persisting anything. Used by the recording UI to preview a field set.
func (h *Handlers) InferFields(w http.ResponseWriter, r *http.Request) {
	var payload models.CapturePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := dom.Parse(payload.HTML, payload.BaseURL)
	if err != nil {
		http.Error(w, "Failed to parse snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}

	session := capture.NewSession(snap)
	list, fields, err := session.ConfirmList(payload.AnchorPath, payload.IsShadow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	respondJSON(w, map[string]interface{}{
		"list":   list,
		"fields": fields,
	})
}

// GetRobot retrieves a robot with its steps
func (h *Handlers) GetRobot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	robot, err := h.db.GetRobot(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if robot == nil {
		http.Error(w, "Robot not found", http.StatusNotFound)
		return
	}

	steps, _ := h.db.GetRobotSteps(ctx, id)
	robot.Steps = steps

	respondJSON(w, robot)
}

// DeleteRobot deletes a robot and its steps
func (h *Handlers) DeleteRobot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	if err := h.db.DeleteRobot(ctx, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ==================== Run Handlers ====================

// ExecuteRobot starts an unattended extraction run for a robot
func (h *Handlers) ExecuteRobot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	robotID := vars["id"]

	var req models.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.RobotID = robotID

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	robot, err := h.db.GetRobot(ctx, robotID)
	if err != nil || robot == nil {
		http.Error(w, "Robot not found", http.StatusNotFound)
		return
	}

	steps, _ := h.db.GetRobotSteps(ctx, robotID)
	if len(steps) == 0 {
		http.Error(w, "Robot has no capture steps", http.StatusUnprocessableEntity)
		return
	}

	runID := uuid.New().String()
	run := &models.ExtractionRun{
		ID:      runID,
		RobotID: robotID,
		Status:  models.StatusPending,
	}

	if err := h.db.CreateExtractionRun(ctx, run); err != nil {
		http.Error(w, "Failed to create run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}

	input := models.ExtractionInput{
		RobotID:   robotID,
		RunID:     runID,
		TargetURL: robot.TargetURL,
		Steps:     steps,
		Headless:  req.Headless,
		MaxPages:  maxPages,
		Timeout:   300,
	}

	workflowOptions := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("selector-extraction-%s", runID),
		TaskQueue: TaskQueue,
	}

	we, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, "ExtractionWorkflow", input)
	if err != nil {
		h.db.UpdateExtractionRunStatus(ctx, runID, models.StatusFailed, err.Error())
		http.Error(w, "Failed to start workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.db.UpdateExtractionRunStatus(ctx, runID, models.StatusRunning, "")

	respondJSON(w, map[string]interface{}{
		"run_id":               runID,
		"temporal_workflow_id": we.GetID(),
		"temporal_run_id":      we.GetRunID(),
		"status":               "running",
	})
}

// ListRuns lists extraction runs for a robot
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	robotID := r.URL.Query().Get("robot_id")

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	var runs []models.ExtractionRun
	var err error

	if robotID != "" {
		runs, err = h.db.ListExtractionRuns(ctx, robotID)
	} else {
		runs = []models.ExtractionRun{}
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, runs)
}

// GetRun retrieves an extraction run with its rows
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.db.GetExtractionRun(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	rows, _ := h.db.GetExtractedRows(ctx, id)
	run.Rows = rows

	respondJSON(w, run)
}

// CancelRun cancels a running extraction
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.db.GetExtractionRun(ctx, id)
	if err != nil || run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	if run.TemporalWorkflowID != "" {
		err = h.temporalClient.CancelWorkflow(ctx, run.TemporalWorkflowID, run.TemporalRunID)
		if err != nil {
			http.Error(w, "Failed to cancel workflow: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.db.UpdateExtractionRunStatus(ctx, id, models.StatusCanceled, "Cancelled by user")

	respondJSON(w, map[string]string{"status": "canceled"})
}

// ==================== Capture Session Handler ====================

// CaptureSession drives an interactive capture over a websocket. The client
// first sends a snapshot message carrying the flattened page HTML, then
// streams hover and confirm events; the server answers with highlight and
// field_set messages.
func (h *Handlers) CaptureSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var session *capture.Session

	for {
		var msg models.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		raw, _ := json.Marshal(msg.Payload)

		switch msg.Type {
		case models.WSSnapshot:
			var payload models.CapturePayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				writeWSError(conn, "invalid snapshot payload")
				continue
			}
			snap, err := dom.Parse(payload.HTML, payload.BaseURL)
			if err != nil {
				writeWSError(conn, "failed to parse snapshot: "+err.Error())
				continue
			}
			session = capture.NewSession(snap)

		case models.WSHover:
			if session == nil {
				writeWSError(conn, "no snapshot loaded")
				continue
			}
			var payload models.HoverPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				writeWSError(conn, "invalid hover payload")
				continue
			}
			resp, handled := session.Hover(payload.Path, payload.IsShadow)
			if !handled {
				continue
			}
			conn.WriteJSON(models.WSMessage{Type: models.WSHighlight, Payload: resp})

		case models.WSConfirmList:
			if session == nil {
				writeWSError(conn, "no snapshot loaded")
				continue
			}
			var payload models.HoverPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				writeWSError(conn, "invalid confirm payload")
				continue
			}
			list, fields, err := session.ConfirmList(payload.Path, payload.IsShadow)
			if err != nil {
				writeWSError(conn, err.Error())
				continue
			}
			conn.WriteJSON(models.WSMessage{Type: models.WSFieldSet, Payload: map[string]interface{}{
				"list":   list,
				"fields": fields,
			}})

		case models.WSCapturePagination:
			if session == nil {
				writeWSError(conn, "no snapshot loaded")
				continue
			}
			var payload struct {
				Type     models.PaginationType `json:"type"`
				Path     string                `json:"path"`
				IsShadow bool                  `json:"is_shadow,omitempty"`
			}
			if err := json.Unmarshal(raw, &payload); err != nil {
				writeWSError(conn, "invalid pagination payload")
				continue
			}
			desc, err := session.CapturePagination(payload.Type, payload.Path, payload.IsShadow)
			if err != nil {
				writeWSError(conn, err.Error())
				continue
			}
			conn.WriteJSON(models.WSMessage{Type: models.WSCapturePagination, Payload: desc})

		case models.WSExitCapture:
			if session != nil {
				session.Exit()
			}
			return

		default:
			writeWSError(conn, "unknown message type: "+msg.Type)
		}
	}
}

// StreamRunUpdates streams run progress via WebSocket
func (h *Handlers) StreamRunUpdates(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastStatus := ""
	lastRowCount := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var status models.RunStatus
			var rowCount int

			// Query the workflow directly for live progress, falling back
			// to the database when the workflow is already gone.
			if h.temporalClient != nil {
				queryResp, err := h.temporalClient.QueryWorkflow(ctx, fmt.Sprintf("selector-extraction-%s", runID), "", "getProgress")
				if err == nil {
					var result models.ExtractionResult
					if queryResp.Get(&result) == nil {
						status = result.Status
						rowCount = len(result.Rows)
					}
				}
			}

			if status == "" && h.db != nil {
				run, err := h.db.GetExtractionRun(ctx, runID)
				if err != nil || run == nil {
					continue
				}
				status = run.Status
				rowCount = run.RowCount
			}

			if string(status) != lastStatus || rowCount != lastRowCount {
				msg := models.WSMessage{
					Type: "run_update",
					Payload: map[string]interface{}{
						"run_id":    runID,
						"status":    status,
						"row_count": rowCount,
					},
				}
				conn.WriteJSON(msg)

				lastStatus = string(status)
				lastRowCount = rowCount

				if status == models.StatusSuccess || status == models.StatusFailed || status == models.StatusCanceled {
					return
				}
			}
		}
	}
}

// ==================== Helpers ====================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeWSError(conn *websocket.Conn, msg string) {
	if err := conn.WriteJSON(models.WSMessage{Type: models.WSError, Payload: map[string]string{"error": msg}}); err != nil {
		log.Printf("Failed to write websocket error: %v", err)
	}
}

package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/getmaxun/maxun-sub002/pkg/models"
)

// ExtractionWorkflow replays a robot's stored selectors against the live site:
// fetch flattened page snapshots, extract rows from each, store the results.
func ExtractionWorkflow(ctx workflow.Context, input models.ExtractionInput) (models.ExtractionResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting extraction workflow", "robotID", input.RobotID, "runID", input.RunID)

	result := models.ExtractionResult{
		RunID:  input.RunID,
		Status: models.StatusRunning,
	}

	// Register query handler for real-time progress
	err := workflow.SetQueryHandler(ctx, "getProgress", func() (models.ExtractionResult, error) {
		return result, nil
	})
	if err != nil {
		logger.Error("Failed to register query handler", "error", err)
	}

	startTime := workflow.Now(ctx)

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = 300
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(timeout) * time.Second,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{"FatalBrowserError", "InvalidSelectorError"},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Fetch all page snapshots in one browser session so pagination state
	// survives between pages.
	var pages []PageSnapshot
	err = workflow.ExecuteActivity(ctx, "FetchPagesActivity", FetchInput{
		TargetURL:  input.TargetURL,
		Headless:   input.Headless,
		MaxPages:   input.MaxPages,
		Pagination: paginationOf(input.Steps),
	}).Get(ctx, &pages)
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Failed to fetch pages: " + err.Error()
		finalize(ctx, &result)
		return result, nil
	}
	result.PagesVisited = len(pages)

	limit := limitOf(input.Steps)

	for _, page := range pages {
		var rows []models.ExtractedRow
		err := workflow.ExecuteActivity(ctx, "ExtractPageActivity", ExtractInput{
			Page:  page,
			Steps: input.Steps,
		}).Get(ctx, &rows)
		if err != nil {
			logger.Warn("Page extraction failed", "url", page.URL, "error", err.Error())
			continue
		}
		result.Rows = append(result.Rows, rows...)
		if limit > 0 && len(result.Rows) >= limit {
			result.Rows = result.Rows[:limit]
			break
		}
	}

	// Renumber ordinals across page boundaries
	for i := range result.Rows {
		result.Rows[i].Ordinal = i
		result.Rows[i].RunID = input.RunID
	}

	err = workflow.ExecuteActivity(ctx, "StoreResultsActivity", StoreInput{
		RunID:        input.RunID,
		Rows:         result.Rows,
		PagesVisited: result.PagesVisited,
	}).Get(ctx, nil)
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Failed to store results: " + err.Error()
		finalize(ctx, &result)
		return result, nil
	}

	result.Status = models.StatusSuccess
	result.TotalDuration = workflow.Now(ctx).Sub(startTime).Milliseconds()

	logger.Info("Extraction completed", "rows", len(result.Rows), "pages", result.PagesVisited, "duration", result.TotalDuration)
	return result, nil
}

func finalize(ctx workflow.Context, result *models.ExtractionResult) {
	_ = workflow.ExecuteActivity(ctx, "MarkRunFailedActivity", MarkFailedInput{
		RunID:        result.RunID,
		ErrorMessage: result.ErrorMessage,
	}).Get(ctx, nil)
}

// PageSnapshot is one fetched page: the flattened HTML with shadow content and
// iframes inlined, plus the URL it was captured from.
type PageSnapshot struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

// FetchInput is the input for fetching page snapshots
type FetchInput struct {
	TargetURL  string                       `json:"target_url"`
	Headless   bool                         `json:"headless"`
	MaxPages   int                          `json:"max_pages"`
	Pagination *models.PaginationDescriptor `json:"pagination,omitempty"`
}

// ExtractInput is the input for extracting rows from one snapshot
type ExtractInput struct {
	Page  PageSnapshot       `json:"page"`
	Steps []models.RobotStep `json:"steps"`
}

// StoreInput is the input for persisting a run's results
type StoreInput struct {
	RunID        string                `json:"run_id"`
	Rows         []models.ExtractedRow `json:"rows"`
	PagesVisited int                   `json:"pages_visited"`
}

// MarkFailedInput is the input for recording a failed run
type MarkFailedInput struct {
	RunID        string `json:"run_id"`
	ErrorMessage string `json:"error_message"`
}

func paginationOf(steps []models.RobotStep) *models.PaginationDescriptor {
	for _, step := range steps {
		if step.Type == models.StepCapturePagination && step.Pagination != nil {
			return step.Pagination
		}
	}
	return nil
}

func limitOf(steps []models.RobotStep) int {
	for _, step := range steps {
		if step.Type == models.StepCaptureLimit && step.Limit > 0 {
			return step.Limit
		}
	}
	return 0
}

package activities

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.temporal.io/sdk/activity"

	"github.com/getmaxun/maxun-sub002/pkg/database"
	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/inference"
	"github.com/getmaxun/maxun-sub002/pkg/models"
	"github.com/getmaxun/maxun-sub002/pkg/temporal/workflows"
)

// flattenAndCaptureJS flattens the live page into the snapshot convention the
// extractor understands: shadow roots inlined into marker containers, iframe
// documents inlined next to their frames, and bounding boxes recorded on every
// rendered element.
const flattenAndCaptureJS = `() => {
	const annotate = (root) => {
		for (const el of root.querySelectorAll('*')) {
			try {
				const r = el.getBoundingClientRect();
				if (r.width > 0 || r.height > 0) {
					el.setAttribute('data-mx-bbox',
						Math.round(r.x) + ',' + Math.round(r.y) + ',' +
						Math.round(r.width) + ',' + Math.round(r.height));
				}
			} catch (e) {}
		}
	};
	const inlineShadow = (root) => {
		for (const el of root.querySelectorAll('*')) {
			if (el.shadowRoot && !el.querySelector(':scope > div[data-shadow-root]')) {
				inlineShadow(el.shadowRoot);
				annotate(el.shadowRoot);
				const holder = document.createElement('div');
				holder.setAttribute('data-shadow-root', 'true');
				holder.innerHTML = el.shadowRoot.innerHTML;
				el.appendChild(holder);
			}
		}
	};
	const inlineFrames = () => {
		for (const frame of document.querySelectorAll('iframe')) {
			try {
				const doc = frame.contentDocument;
				if (!doc || !doc.body) continue;
				annotate(doc);
				const holder = document.createElement('div');
				holder.setAttribute('data-captured-iframe', 'true');
				holder.innerHTML = doc.body.innerHTML;
				frame.insertAdjacentElement('afterend', holder);
			} catch (e) {}
		}
	};
	annotate(document);
	inlineShadow(document);
	inlineFrames();
	return document.documentElement.outerHTML;
}`

// Activities holds activity implementations
type Activities struct {
	DB *database.DB
}

// NewActivities creates new activities
func NewActivities(db *database.DB) *Activities {
	return &Activities{DB: db}
}

// FetchPagesActivity drives one browser session through the target site and
// its pagination, capturing a flattened snapshot of every page visited.
func (a *Activities) FetchPagesActivity(ctx context.Context, input workflows.FetchInput) ([]workflows.PageSnapshot, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching pages", "url", input.TargetURL, "maxPages", input.MaxPages)

	l := launcher.New()

	// Use CHROME_BIN if set (Docker environment)
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		l = l.Bin(chromeBin)
	}

	l = l.Headless(input.Headless)
	l = l.Set("no-sandbox")
	l = l.Set("disable-gpu")
	l = l.Set("disable-dev-shm-usage")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: input.TargetURL})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	maxPages := input.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var snapshots []workflows.PageSnapshot
	for pageNum := 0; pageNum < maxPages; pageNum++ {
		activity.RecordHeartbeat(ctx, fmt.Sprintf("Capturing page %d/%d", pageNum+1, maxPages))

		res, err := page.Eval(flattenAndCaptureJS)
		if err != nil {
			return nil, fmt.Errorf("failed to capture snapshot: %w", err)
		}

		info, err := page.Info()
		pageURL := input.TargetURL
		if err == nil {
			pageURL = info.URL
		}

		snapshots = append(snapshots, workflows.PageSnapshot{
			HTML: res.Value.Str(),
			URL:  pageURL,
		})

		if pageNum == maxPages-1 || input.Pagination == nil {
			break
		}
		if !a.advancePage(page, input.Pagination) {
			break
		}
	}

	logger.Info("Captured pages", "count", len(snapshots))
	return snapshots, nil
}

// advancePage applies the recorded pagination action. Returns false when the
// list cannot advance further.
func (a *Activities) advancePage(page *rod.Page, pagination *models.PaginationDescriptor) bool {
	switch pagination.Type {
	case models.PaginationScrollDown:
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return false
		}
	case models.PaginationScrollUp:
		if _, err := page.Eval(`() => window.scrollTo(0, 0)`); err != nil {
			return false
		}
	case models.PaginationClickNext, models.PaginationClickLoadMore:
		// Pinned selector replays as a plain XPath; crossing tokens cannot
		// be resolved against the live document.
		if pagination.Selector == "" {
			return false
		}
		el, err := page.Timeout(10 * time.Second).ElementX(pagination.Selector)
		if err != nil {
			return false
		}
		if err := el.ScrollIntoView(); err != nil {
			return false
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return false
		}
		if pagination.Type == models.PaginationClickNext {
			page.WaitLoad()
		}
	default:
		return false
	}

	// Let lazy content settle after the advance.
	time.Sleep(1500 * time.Millisecond)
	return true
}

// ExtractPageActivity replays the robot's stored selectors against one
// flattened snapshot and returns the extracted rows.
func (a *Activities) ExtractPageActivity(ctx context.Context, input workflows.ExtractInput) ([]models.ExtractedRow, error) {
	logger := activity.GetLogger(ctx)

	snap, err := dom.Parse(input.Page.HTML, input.Page.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	var rows []models.ExtractedRow
	for _, step := range input.Steps {
		if step.Type != models.StepCaptureList || step.List == nil {
			continue
		}
		rows = append(rows, inference.ReplayFields(snap, step.List, step.Fields, input.Page.URL)...)
	}

	logger.Info("Extracted rows", "url", input.Page.URL, "count", len(rows))
	return rows, nil
}

// StoreResultsActivity persists the rows of a finished run and marks it
// successful.
func (a *Activities) StoreResultsActivity(ctx context.Context, input workflows.StoreInput) error {
	if a.DB == nil {
		return nil
	}

	if len(input.Rows) > 0 {
		if err := a.DB.CreateExtractedRows(ctx, input.RunID, input.Rows); err != nil {
			return fmt.Errorf("failed to store rows: %w", err)
		}
	}
	if err := a.DB.UpdateExtractionRunCounts(ctx, input.RunID, len(input.Rows), input.PagesVisited); err != nil {
		return fmt.Errorf("failed to update counts: %w", err)
	}
	return a.DB.UpdateExtractionRunStatus(ctx, input.RunID, models.StatusSuccess, "")
}

// MarkRunFailedActivity records a failed run
func (a *Activities) MarkRunFailedActivity(ctx context.Context, input workflows.MarkFailedInput) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.UpdateExtractionRunStatus(ctx, input.RunID, models.StatusFailed, input.ErrorMessage)
}

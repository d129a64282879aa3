package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/inference"
	"github.com/getmaxun/maxun-sub002/pkg/models"
	"github.com/getmaxun/maxun-sub002/pkg/selector"
)

// Sentinel errors surfaced to the capture front-end. None of them are fatal
// to the host; they all mean "ask the user to re-select".
var (
	ErrNotRepeating = errors.New("element does not belong to a repeating group")
	ErrEmptyList    = errors.New("list selector produced no field candidates")
	ErrSuperseded   = errors.New("selection superseded by a newer list selector")
	ErrNoElement    = errors.New("path resolved to no element")
)

const (
	// hoverGate rate-limits hover classification to roughly one frame.
	hoverGate = 16 * time.Millisecond
	// renderSettleDelay is the single deferral before enumeration runs,
	// letting the confirming render settle first.
	renderSettleDelay = 50 * time.Millisecond
)

// Session owns all state of one list-capture interaction: the snapshot under
// inspection, the confirmed descriptor, and the enumeration cache keyed by
// listSelector. Everything here is ephemeral; Exit clears it.
type Session struct {
	mu   sync.Mutex
	snap *dom.Snapshot

	list       *models.ListDescriptor
	fields     models.FieldSet
	pagination *models.PaginationDescriptor

	cachedSelector string
	cachedFields   models.FieldSet
	pendingKey     string

	enumerations int
	lastHover    time.Time

	// Hooks so tests can drive time and the suspension point directly.
	now    func() time.Time
	settle func()
}

// NewSession starts a capture session over a parsed snapshot.
func NewSession(snap *dom.Snapshot) *Session {
	return &Session{
		snap:   snap,
		now:    time.Now,
		settle: func() { time.Sleep(renderSettleDelay) },
	}
}

// Hover classifies the element under the pointer as list-root or leaf. The
// second return is false when the call was discarded by the 60Hz gate.
func (s *Session) Hover(path string, shadowHint bool) (models.HighlightResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	if !s.lastHover.IsZero() && t.Sub(s.lastHover) < hoverGate {
		return models.HighlightResponse{}, false
	}
	s.lastHover = t

	el := selector.EvaluateFirst(s.snap, path, shadowHint)
	if el == nil {
		return models.HighlightResponse{}, true
	}
	group := inference.DetectGroup(el)
	resp := models.HighlightResponse{
		IsGroup:     group.IsGroup,
		MemberCount: len(group.Members),
	}
	if group.IsGroup {
		resp.ListSelector = selector.Normalize(selector.PathFor(group.Members[0]))
	}
	return resp, true
}

// ConfirmList confirms the hovered element as a list root, runs the
// enumeration pipeline once per list selector, and returns the descriptor
// with its finalized field set. Re-confirming the same selector returns the
// cached result without re-running enumeration; confirming a different
// selector invalidates any in-flight enumeration for the old one.
func (s *Session) ConfirmList(path string, shadowHint bool) (*models.ListDescriptor, models.FieldSet, error) {
	s.mu.Lock()

	el := selector.EvaluateFirst(s.snap, path, shadowHint)
	if el == nil {
		s.mu.Unlock()
		return nil, nil, ErrNoElement
	}
	group := inference.DetectGroup(el)
	if !group.IsGroup {
		s.mu.Unlock()
		return nil, nil, ErrNotRepeating
	}
	listSelector := selector.Normalize(selector.PathFor(group.Members[0]))

	if listSelector == s.cachedSelector && s.cachedFields != nil {
		desc := s.list
		fields := s.cachedFields
		s.mu.Unlock()
		return desc, fields, nil
	}

	s.pendingKey = listSelector
	s.mu.Unlock()

	// Yield once so the triggering render settles before the expensive
	// one-time enumeration.
	s.settle()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingKey != listSelector {
		return nil, nil, ErrSuperseded
	}

	s.enumerations++
	patterns := inference.EnumerateAndValidate(s.snap, listSelector, shadowHint)

	var candidates []inference.Candidate
	for _, pattern := range patterns {
		candidates = append(candidates, inference.Extract(s.snap, pattern, listSelector, shadowHint)...)
	}
	fields := inference.Finalize(candidates)
	if len(fields) == 0 {
		// Full reset, not partial repair: the descriptor and any partial
		// field set are discarded together.
		s.resetLocked()
		return nil, nil, ErrEmptyList
	}

	sample := len(group.Members)
	if sample > 10 {
		sample = 10
	}
	desc := &models.ListDescriptor{
		ListSelector: listSelector,
		IsShadow:     shadowHint || selector.HasShadowCross(listSelector),
		SampleSize:   sample,
	}

	s.list = desc
	s.fields = fields
	s.cachedSelector = listSelector
	s.cachedFields = fields
	return desc, fields, nil
}

// CapturePagination records the pagination control for the current capture.
// Click types pin the concrete path without generalizing it; scroll types
// record only the direction.
func (s *Session) CapturePagination(ptype models.PaginationType, path string, shadowHint bool) (*models.PaginationDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc := &models.PaginationDescriptor{Type: ptype}
	switch ptype {
	case models.PaginationNone, models.PaginationScrollDown, models.PaginationScrollUp:
		// No selector for scroll-driven pagination.
	case models.PaginationClickNext, models.PaginationClickLoadMore:
		if selector.EvaluateFirst(s.snap, path, shadowHint) == nil {
			return nil, ErrNoElement
		}
		desc.Selector = path
		desc.IsShadow = shadowHint || selector.HasShadowCross(path)
	default:
		return nil, errors.New("unknown pagination type")
	}
	s.pagination = desc
	return desc, nil
}

// Exit leaves list-capture mode, destroying the descriptor, field set,
// pagination capture and the enumeration cache.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.pagination = nil
}

func (s *Session) resetLocked() {
	s.list = nil
	s.fields = nil
	s.cachedSelector = ""
	s.cachedFields = nil
	s.pendingKey = ""
}

// EnumerationCount reports how many times the enumeration pipeline actually
// ran; the cache makes this observable.
func (s *Session) EnumerationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enumerations
}

// Steps serializes the session's confirmed captures into robot steps, the
// plain-data hand-off consumed by the recording store.
func (s *Session) Steps(robotID string) []models.RobotStep {
	s.mu.Lock()
	defer s.mu.Unlock()

	var steps []models.RobotStep
	seq := 1
	if s.list != nil && s.fields != nil {
		steps = append(steps, models.RobotStep{
			ID:         uuid.New().String(),
			RobotID:    robotID,
			SequenceID: seq,
			Type:       models.StepCaptureList,
			List:       s.list,
			Fields:     s.fields,
			CreatedAt:  time.Now(),
		})
		seq++
	}
	if s.pagination != nil {
		steps = append(steps, models.RobotStep{
			ID:         uuid.New().String(),
			RobotID:    robotID,
			SequenceID: seq,
			Type:       models.StepCapturePagination,
			Pagination: s.pagination,
			CreatedAt:  time.Now(),
		})
	}
	return steps
}

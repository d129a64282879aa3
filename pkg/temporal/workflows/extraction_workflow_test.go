package workflows

import (
	"testing"

	"github.com/getmaxun/maxun-sub002/pkg/models"
)

func TestStepAccessors(t *testing.T) {
	steps := []models.RobotStep{
		{Type: models.StepCaptureList, List: &models.ListDescriptor{ListSelector: "//ul/li"}},
		{Type: models.StepCapturePagination, Pagination: &models.PaginationDescriptor{Type: models.PaginationClickNext, Selector: "//a[1]"}},
		{Type: models.StepCaptureLimit, Limit: 50},
	}

	p := paginationOf(steps)
	if p == nil || p.Type != models.PaginationClickNext {
		t.Fatalf("paginationOf = %+v, want the click-next descriptor", p)
	}
	if got := limitOf(steps); got != 50 {
		t.Errorf("limitOf = %d, want 50", got)
	}

	bare := []models.RobotStep{{Type: models.StepCaptureList}}
	if paginationOf(bare) != nil {
		t.Error("paginationOf should be nil without a pagination step")
	}
	if limitOf(bare) != 0 {
		t.Error("limitOf should be 0 without a limit step")
	}
}

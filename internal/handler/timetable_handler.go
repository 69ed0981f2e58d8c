package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurhakim/campus-scheduler-api/internal/dto"
	"github.com/nurhakim/campus-scheduler-api/internal/models"
	"github.com/nurhakim/campus-scheduler-api/internal/service"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
	"github.com/nurhakim/campus-scheduler-api/pkg/response"
)

type timetableScheduler interface {
	Generate(ctx context.Context, universityID string) (*dto.TimetableRunStats, error)
	Reset(ctx context.Context, universityID string) error
	UpdateCourseSlots(ctx context.Context, courseID string, req dto.UpdateCourseScheduleRequest) (*models.Course, error)
}

// TimetableHandler exposes weekly course timetable endpoints.
type TimetableHandler struct {
	service timetableScheduler
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate the weekly course timetable for a university
// @Description Discards the stored timetable and recomputes every course's weekly slots. Courses that cannot be fully placed are reported, not rolled back.
// @Tags Timetable
// @Produce json
// @Param id path string true "University ID"
// @Success 200 {object} response.Envelope
// @Router /universities/{id}/timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	universityID := c.Param("id")
	if err := requireTenant(c, universityID); err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.Generate(c.Request.Context(), universityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Reset godoc
// @Summary Clear the stored course timetable for a university
// @Tags Timetable
// @Produce json
// @Param id path string true "University ID"
// @Success 204
// @Router /universities/{id}/timetable/reset [post]
func (h *TimetableHandler) Reset(c *gin.Context) {
	universityID := c.Param("id")
	if err := requireTenant(c, universityID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Reset(c.Request.Context(), universityID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateCourseSchedule godoc
// @Summary Replace one course's weekly slots manually
// @Description Validates the proposed slots against every other committed schedule. A room or professor collision rejects the whole edit.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.UpdateCourseScheduleRequest true "Proposed weekly slots"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/schedule [put]
func (h *TimetableHandler) UpdateCourseSchedule(c *gin.Context) {
	var req dto.UpdateCourseScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	course, err := h.service.UpdateCourseSlots(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nurhakim/campus-scheduler-api/internal/dto"
	"github.com/nurhakim/campus-scheduler-api/internal/models"
	"github.com/nurhakim/campus-scheduler-api/internal/service"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
	"github.com/nurhakim/campus-scheduler-api/pkg/response"
)

type examScheduler interface {
	Generate(ctx context.Context, examID, tenant string, req dto.GenerateExamTimetableRequest) (*dto.ExamTimetableResult, error)
	AssignInvigilators(ctx context.Context, examID, tenant string) (*dto.InvigilatorRunStats, error)
	GetSchedule(ctx context.Context, examID, tenant string) ([]models.ExamScheduleDetail, error)
}

type scheduleExporter interface {
	ExportSchedule(ctx context.Context, examID, tenant string, format service.ExportFormat) (*service.ExportFile, error)
}

// ExamHandler exposes exam timetable endpoints.
type ExamHandler struct {
	service  examScheduler
	exporter scheduleExporter
}

// NewExamHandler constructs the handler.
func NewExamHandler(svc *service.ExamTimetableService, exporter *service.ExportService) *ExamHandler {
	return &ExamHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Generate a conflict-free exam timetable
// @Description Colors the student-conflict graph into dated sessions and packs classrooms. Any course that cannot be seated fails the whole run with 400 and nothing is persisted.
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.GenerateExamTimetableRequest true "Scheduling horizon"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exams/{id}/timetable/generate [post]
func (h *ExamHandler) Generate(c *gin.Context) {
	var req dto.GenerateExamTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam timetable payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), c.Param("id"), tenantScope(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AssignInvigilators godoc
// @Summary Assign invigilators to committed exam sessions
// @Description Rotates through the professor roster; sessions no professor can cover stay unassigned and are reported in the counts.
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/invigilators [post]
func (h *ExamHandler) AssignInvigilators(c *gin.Context) {
	stats, err := h.service.AssignInvigilators(c.Request.Context(), c.Param("id"), tenantScope(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// GetSchedule godoc
// @Summary Get the resolved exam schedule
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/schedule [get]
func (h *ExamHandler) GetSchedule(c *gin.Context) {
	rows, err := h.service.GetSchedule(c.Request.Context(), c.Param("id"), tenantScope(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Download the exam schedule as CSV or PDF
// @Tags Exams
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Exam ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /exams/{id}/schedule/export [get]
func (h *ExamHandler) Export(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	file, err := h.exporter.ExportSchedule(c.Request.Context(), c.Param("id"), tenantScope(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

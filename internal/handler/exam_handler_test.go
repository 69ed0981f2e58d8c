package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nurhakim/campus-scheduler-api/internal/dto"
	internalmiddleware "github.com/nurhakim/campus-scheduler-api/internal/middleware"
	"github.com/nurhakim/campus-scheduler-api/internal/models"
	"github.com/nurhakim/campus-scheduler-api/internal/service"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
)

type examSchedulerMock struct {
	captured       dto.GenerateExamTimetableRequest
	capturedTenant string
	generateErr    error
}

func (m *examSchedulerMock) Generate(ctx context.Context, examID, tenant string, req dto.GenerateExamTimetableRequest) (*dto.ExamTimetableResult, error) {
	m.captured = req
	m.capturedTenant = tenant
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &dto.ExamTimetableResult{ScheduleCount: 3}, nil
}

func (m *examSchedulerMock) AssignInvigilators(ctx context.Context, examID, tenant string) (*dto.InvigilatorRunStats, error) {
	m.capturedTenant = tenant
	return &dto.InvigilatorRunStats{AssignedCount: 2, UnassignedCount: 1}, nil
}

func (m *examSchedulerMock) GetSchedule(ctx context.Context, examID, tenant string) ([]models.ExamScheduleDetail, error) {
	m.capturedTenant = tenant
	return []models.ExamScheduleDetail{{CourseName: "Mathematics"}}, nil
}

type scheduleExporterMock struct {
	format service.ExportFormat
	tenant string
}

func (m *scheduleExporterMock) ExportSchedule(ctx context.Context, examID, tenant string, format service.ExportFormat) (*service.ExportFile, error) {
	m.format = format
	m.tenant = tenant
	return &service.ExportFile{Filename: "exam-schedule-exam-1.csv", ContentType: "text/csv", Data: []byte("Date\n")}, nil
}

func TestExamHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &examSchedulerMock{}
	handler := &ExamHandler{service: mockSvc}

	payload := []byte(`{"startDate":"2026-01-12","endDate":"2026-01-16","slotsPerDay":["09:00","14:00"]}`)
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/timetable/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "2026-01-12", mockSvc.captured.StartDate)
	require.Equal(t, []string{"09:00", "14:00"}, mockSvc.captured.SlotsPerDay)
}

func TestExamHandlerGenerateForwardsTenantScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &examSchedulerMock{}
	handler := &ExamHandler{service: mockSvc}

	payload := []byte(`{"startDate":"2026-01-12","endDate":"2026-01-16","slotsPerDay":["09:00"]}`)
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/timetable/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}
	c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, UniversityID: "uni-1"})

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "uni-1", mockSvc.capturedTenant)
}

func TestExamHandlerGenerateInfeasible(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &examSchedulerMock{
		generateErr: appErrors.Clone(appErrors.ErrInfeasible, "no conflict-free exam slot for course Physics"),
	}
	handler := &ExamHandler{service: mockSvc}

	payload := []byte(`{"startDate":"2026-01-12","endDate":"2026-01-12","slotsPerDay":["09:00"]}`)
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/timetable/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "INFEASIBLE_ASSIGNMENT")
}

func TestExamHandlerGenerateMalformed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExamHandler{service: &examSchedulerMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/timetable/generate", bytes.NewReader([]byte(`{"startDate":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExamHandlerAssignInvigilators(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExamHandler{service: &examSchedulerMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/invigilators", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}

	handler.AssignInvigilators(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"unassignedCount":1`)
}

func TestExamHandlerGetSchedule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExamHandler{service: &examSchedulerMock{}}

	req, _ := http.NewRequest(http.MethodGet, "/exams/exam-1/schedule", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}

	handler.GetSchedule(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Mathematics")
}

func TestExamHandlerExportDefaultsToCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &scheduleExporterMock{}
	handler := &ExamHandler{service: &examSchedulerMock{}, exporter: exporter}

	req, _ := http.NewRequest(http.MethodGet, "/exams/exam-1/schedule/export", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, service.ExportFormatCSV, exporter.format)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "exam-schedule-exam-1.csv")
}

func TestExamHandlerRBACUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExamHandler{service: &examSchedulerMock{}}
	router := gin.New()
	router.POST("/exams/:id/invigilators", internalmiddleware.RequireRoles(models.RoleAdmin), handler.AssignInvigilators)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/invigilators", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurhakim/campus-scheduler-api/internal/models"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
)

type scheduleProviderStub struct {
	rows []models.ExamScheduleDetail
}

func (s scheduleProviderStub) GetSchedule(ctx context.Context, examID, tenant string) ([]models.ExamScheduleDetail, error) {
	return s.rows, nil
}

func exportFixtureRows(t *testing.T) []models.ExamScheduleDetail {
	t.Helper()
	invigilator := "Dr. Ibrahim"
	return []models.ExamScheduleDetail{
		{
			ExamSchedule: models.ExamSchedule{
				ID: "row-1", ExamID: "exam-1", CourseID: "math",
				ExamDate: mustDate(t, "2026-01-12"), StartTime: "09:00", EndTime: "12:00",
				StudentCount: 42,
			},
			CourseName: "Mathematics", Section: "A", ClassroomName: "Hall 1",
			InvigilatorName: &invigilator,
		},
		{
			ExamSchedule: models.ExamSchedule{
				ID: "row-2", ExamID: "exam-1", CourseID: "physics",
				ExamDate: mustDate(t, "2026-01-13"), StartTime: "09:00", EndTime: "12:00",
				StudentCount: 17,
			},
			CourseName: "Physics", Section: "B", ClassroomName: "Hall 2",
		},
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(scheduleProviderStub{rows: exportFixtureRows(t)}, nil, nil, nil)

	file, err := svc.ExportSchedule(context.Background(), "exam-1", "", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "exam-schedule-exam-1.csv", file.Filename)

	body := string(file.Data)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Invigilator")
	assert.Contains(t, lines[1], "Mathematics")
	assert.Contains(t, lines[1], "Dr. Ibrahim")
	// Missing invigilators render as a dash.
	assert.Contains(t, lines[2], "-")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(scheduleProviderStub{rows: exportFixtureRows(t)}, nil, nil, nil)

	file, err := svc.ExportSchedule(context.Background(), "exam-1", "", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc := NewExportService(scheduleProviderStub{}, nil, nil, nil)

	_, err := svc.ExportSchedule(context.Background(), "exam-1", "", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

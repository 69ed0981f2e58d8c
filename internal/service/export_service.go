package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nurhakim/campus-scheduler-api/internal/models"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
	"github.com/nurhakim/campus-scheduler-api/pkg/export"
)

// ExportFormat selects the rendered file format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type scheduleProvider interface {
	GetSchedule(ctx context.Context, examID, tenant string) ([]models.ExamScheduleDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered schedule ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders exam schedules as downloadable files.
type ExportService struct {
	schedules scheduleProvider
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(schedules scheduleProvider, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{schedules: schedules, csv: csv, pdf: pdf, logger: logger}
}

// ExportSchedule renders the exam schedule in the requested format.
func (s *ExportService) ExportSchedule(ctx context.Context, examID, tenant string, format ExportFormat) (*ExportFile, error) {
	rows, err := s.schedules.GetSchedule(ctx, examID, tenant)
	if err != nil {
		return nil, err
	}

	dataset := examScheduleDataset(rows)
	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("exam-schedule-%s.csv", examID),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, "Exam Schedule")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("exam-schedule-%s.pdf", examID),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func examScheduleDataset(rows []models.ExamScheduleDetail) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Date", "Start", "End", "Course", "Section", "Classroom", "Invigilator", "Students"},
	}
	for _, row := range rows {
		invigilator := "-"
		if row.InvigilatorName != nil && strings.TrimSpace(*row.InvigilatorName) != "" {
			invigilator = *row.InvigilatorName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":        row.ExamDate.Format("2006-01-02"),
			"Start":       row.StartTime,
			"End":         row.EndTime,
			"Course":      row.CourseName,
			"Section":     row.Section,
			"Classroom":   row.ClassroomName,
			"Invigilator": invigilator,
			"Students":    fmt.Sprintf("%d", row.StudentCount),
		})
	}
	return dataset
}

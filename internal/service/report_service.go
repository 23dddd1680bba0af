package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ReportService produces a teacher's results views: the JSON listing for
// the dashboard and an xlsx export for offline gradebooks.
type ReportService struct {
	attemptRepo *repository.AttemptRepository
	testRepo    *repository.TestRepository
	log         zerolog.Logger
}

func NewReportService(
	attemptRepo *repository.AttemptRepository,
	testRepo *repository.TestRepository,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		attemptRepo: attemptRepo,
		testRepo:    testRepo,
		log:         log.With().Str("component", "report_service").Logger(),
	}
}

// ListResults returns one page of a test's attempts ordered by student
// name, plus the total attempt count for pagination.
func (s *ReportService) ListResults(ctx context.Context, testID uuid.UUID, teacherID int64, page, perPage int) ([]repository.TestResult, int64, error) {
	if _, err := s.getOwnedTest(ctx, testID, teacherID); err != nil {
		return nil, 0, err
	}
	return s.attemptRepo.ListResultsPageByTest(ctx, testID, page, perPage)
}

// ExportResults renders a test's results as an xlsx workbook and returns
// the file bytes plus a suggested filename.
func (s *ReportService) ExportResults(ctx context.Context, testID uuid.UUID, teacherID int64) ([]byte, string, error) {
	test, err := s.getOwnedTest(ctx, testID, teacherID)
	if err != nil {
		return nil, "", err
	}
	results, err := s.attemptRepo.ListResultsByTest(ctx, testID)
	if err != nil {
		return nil, "", fmt.Errorf("list results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"No", "Student Name", "Email", "Score", "Total Marks", "Percentage", "Time Taken (s)", "Auto Submitted", "Submitted At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	f.SetCellStyle(sheet, "A1", "I1", headerStyle)

	for i, r := range results {
		row := i + 2
		submittedAt := ""
		if r.SubmittedAt != nil {
			submittedAt = r.SubmittedAt.Format(time.RFC3339)
		}
		values := []any{
			i + 1,
			r.StudentName,
			r.StudentEmail,
			r.Score,
			r.TotalMarks,
			r.Percentage,
			r.TimeTakenSeconds,
			r.AutoSubmitted,
			submittedAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "B", "C", 28)
	f.SetColWidth(sheet, "I", "I", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}

	filename := fmt.Sprintf("results_%s_%s.xlsx", sanitizeFilename(test.Title), time.Now().Format("20060102"))
	s.log.Info().Str("test_id", testID.String()).Int("rows", len(results)).Msg("Exported results workbook")
	return buf.Bytes(), filename, nil
}

func (s *ReportService) getOwnedTest(ctx context.Context, testID uuid.UUID, teacherID int64) (*model.Test, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if test.TeacherID != teacherID {
		return nil, ErrNotTestOwner
	}
	return test, nil
}

func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "test"
	}
	return string(out)
}

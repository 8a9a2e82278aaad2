package db

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestScanDrift_ReportsMissingAndOrphans(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	dir := t.TempDir()
	present := filepath.Join(dir, "1_present.glb")
	orphan := filepath.Join(dir, "2_orphan.glb")
	gone := filepath.Join(dir, "3_gone.glb")
	for _, p := range []string{present, orphan} {
		if err := os.WriteFile(p, []byte("glTF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	mock.ExpectQuery("SELECT id, name, filePath FROM glb_models").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "filePath"}).
			AddRow(int64(1), "present", present).
			AddRow(int64(3), "gone", gone))

	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.WarnLevel,
	)

	report, err := ScanDrift(context.Background(), dbMock, dir, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Clean() {
		t.Fatal("expected drift to be reported")
	}
	if len(report.Missing) != 1 || report.Missing[0].ID != 3 {
		t.Errorf("unexpected missing rows: %+v", report.Missing)
	}
	if len(report.Orphans) != 1 || report.Orphans[0] != orphan {
		t.Errorf("unexpected orphans: %v", report.Orphans)
	}

	// The scan must not touch the files it reports.
	if _, err := os.Stat(orphan); err != nil {
		t.Errorf("orphan file was removed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "catalog row without file") || !strings.Contains(out, "file without catalog row") {
		t.Errorf("expected warnings in log, got:\n%s", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestScanDrift_MissingDirIsClean(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	mock.ExpectQuery("SELECT id, name, filePath FROM glb_models").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "filePath"}))

	report, err := ScanDrift(context.Background(), dbMock, filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Clean() {
		t.Errorf("expected clean report, got %+v", report)
	}
}

func TestScanDrift_QueryError(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	mock.ExpectQuery("SELECT id, name, filePath FROM glb_models").
		WillReturnError(fmt.Errorf("db fail"))

	_, err = ScanDrift(context.Background(), dbMock, t.TempDir(), zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "ScanDrift") {
		t.Errorf("expected ScanDrift error, got %v", err)
	}
}

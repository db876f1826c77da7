package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/internal/repository"
	"github.com/noah-isme/student-card-api/internal/service"
	"github.com/noah-isme/student-card-api/pkg/archive"
	"github.com/noah-isme/student-card-api/pkg/card"
	"github.com/noah-isme/student-card-api/pkg/card/assets"
	"github.com/noah-isme/student-card-api/pkg/config"
	"github.com/noah-isme/student-card-api/pkg/spreadsheet"
)

func main() {
	var (
		inPath      string
		outPath     string
		logoURL     string
		mappingJSON string
		timeout     time.Duration
		verbose     bool
	)

	flag.StringVar(&inPath, "in", "", "Spreadsheet to import (.xlsx or .csv)")
	flag.StringVar(&outPath, "out", archive.ArchiveName, "Destination ZIP archive")
	flag.StringVar(&logoURL, "logo", config.DefaultLogoURL, "Logo URL or local file")
	flag.StringVar(&mappingJSON, "mapping", "", "Column mapping as JSON; the suggested mapping is used when empty")
	flag.DurationVar(&timeout, "logo-timeout", 5*time.Second, "Logo fetch timeout")
	flag.BoolVar(&verbose, "v", false, "Log every card")
	flag.Parse()

	if inPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logr := zap.NewNop()
	if verbose {
		var err error
		if logr, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("failed to init logger: %v", err)
		}
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	students, err := importStudents(ctx, inPath, mappingJSON, logr)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	count, err := writeArchive(ctx, students, outPath, logoURL, timeout, logr)
	if err != nil {
		log.Fatalf("packaging failed: %v", err)
	}
	fmt.Printf("%d cards written to %s\n", count, outPath)
}

func importStudents(ctx context.Context, path, mappingJSON string, logr *zap.Logger) ([]models.Student, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	sheet, err := spreadsheet.Parse(filepath.Base(path), file)
	if err != nil {
		return nil, err
	}
	mapping := spreadsheet.SuggestMapping(sheet.Headers)
	if mappingJSON != "" {
		if err := json.Unmarshal([]byte(mappingJSON), &mapping); err != nil {
			return nil, fmt.Errorf("parse mapping: %w", err)
		}
	}
	rows, err := sheet.Records(mapping)
	if err != nil {
		return nil, err
	}

	students := service.NewStudentService(repository.NewStudentStore(), nil, logr, service.StudentServiceConfig{})
	return students.ImportMany(ctx, rows)
}

func writeArchive(ctx context.Context, students []models.Student, outPath, logoURL string, timeout time.Duration, logr *zap.Logger) (int, error) {
	logo := assets.NewLogoFetcher(logoURL, assets.WithTimeout(timeout))
	renderer, err := card.NewRenderer(logo, card.WithLogger(logr), card.WithPhaseHook(func(studentID string, phase card.Phase) {
		logr.Sugar().Debugw("card phase", "student_id", studentID, "phase", phase)
	}))
	if err != nil {
		return 0, err
	}
	packager, err := archive.NewPackager(renderer, logr)
	if err != nil {
		return 0, err
	}
	defer packager.Close() //nolint:errcheck

	data, err := packager.PackageBytes(ctx, students, archive.WithProgress(func(done, total int) {
		logr.Sugar().Infow("card packaged", "done", done, "total", total)
	}))
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return 0, err
	}
	return len(students), nil
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/internal/repository"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/export"
)

type rosterRendererStub struct {
	out    []byte
	roster export.Roster
}

func (r *rosterRendererStub) Render(roster export.Roster) ([]byte, error) {
	r.roster = roster
	return r.out, nil
}

func TestRosterServiceExportFormats(t *testing.T) {
	store := repository.NewStudentStore()
	seedStudents(t, store, "Ana", "Bruno")
	red := &models.Student{Name: "Carla", Status: models.StatusRed}
	require.NoError(t, store.Create(context.Background(), red))

	csv := &rosterRendererStub{out: []byte("csv")}
	pdf := &rosterRendererStub{out: []byte("pdf")}
	svc := NewRosterService(store, csv, pdf, zap.NewNop())

	file, err := svc.Export(context.Background(), "", models.StudentFilter{PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, "alunos.csv", file.Filename)
	assert.Equal(t, []byte("csv"), file.Data)
	assert.Equal(t, 3, file.Count)
	require.Len(t, csv.roster.Entries, 3)

	file, err = svc.Export(context.Background(), "PDF", models.StudentFilter{Status: models.StatusRed})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	require.Len(t, pdf.roster.Entries, 1)
	assert.Equal(t, [3]int{0xF4, 0x43, 0x36}, pdf.roster.Entries[0].Band)

	_, err = svc.Export(context.Background(), "xml", models.StudentFilter{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRosterServiceWithRealExporters(t *testing.T) {
	store := repository.NewStudentStore()
	seedStudents(t, store, "Ana")
	svc := NewRosterService(store, export.NewCSVExporter(';'), export.NewPDFExporter(), zap.NewNop())

	file, err := svc.Export(context.Background(), "csv", models.StudentFilter{})
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), "Ana")

	file, err = svc.Export(context.Background(), "pdf", models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(file.Data[:4]))
}

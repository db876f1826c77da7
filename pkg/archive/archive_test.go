package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image/png"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/pkg/card"
)

type failingRenderer struct {
	inner  Renderer
	failAt int
	calls  int
}

func (f *failingRenderer) Render(ctx context.Context, surface *card.Surface, student models.Student) error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("boom")
	}
	return f.inner.Render(ctx, surface, student)
}

type overlapRenderer struct {
	active  int32
	overlap int32
}

func (o *overlapRenderer) Render(ctx context.Context, surface *card.Surface, student models.Student) error {
	if atomic.AddInt32(&o.active, 1) > 1 {
		atomic.StoreInt32(&o.overlap, 1)
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&o.active, -1)
	return nil
}

func newRenderer(t *testing.T) *card.Renderer {
	t.Helper()
	r, err := card.NewRenderer(nil)
	require.NoError(t, err)
	return r
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "ana-souza", Slugify("Ana Souza"))
	assert.Equal(t, "joão-da-silva", Slugify("João  da\tSilva"))
	assert.Equal(t, "", Slugify(""))
	assert.Equal(t, "ana-clara", Slugify("Ana/Clara"))
	assert.Equal(t, "..-..-x", Slugify("../../x"))
	assert.Equal(t, "a-b", Slugify(`a\b`))
}

func TestCardFilename(t *testing.T) {
	assert.Equal(t, "carteirinha-ana-souza.png", CardFilename(models.Student{ID: "1", Name: "Ana Souza"}))
	assert.Equal(t, "carteirinha-id-9.png", CardFilename(models.Student{ID: "id-9"}))
	assert.Equal(t, "carteirinha-..-etc-passwd.png", CardFilename(models.Student{ID: "1", Name: "../etc/passwd"}))
	assert.Equal(t, "carteirinha-id-7.png", CardFilename(models.Student{ID: "id-7", Name: ".."}))
}

func TestEntryNamesCollisionPolicy(t *testing.T) {
	names := EntryNames([]models.Student{
		{ID: "a1", Name: "Ana Souza"},
		{ID: "b2", Name: "Bruno"},
		{ID: "c3", Name: "ana  souza"},
		{ID: "d4", Name: ""},
		{ID: "e5", Name: "../../x"},
		{ID: "f6", Name: "a/b"},
		{ID: "g7", Name: ".."},
		{ID: "h8", Name: "."},
	})
	assert.Equal(t, []string{
		"carteirinhas/ana-souza.png",
		"carteirinhas/bruno.png",
		"carteirinhas/ana-souza-c3.png",
		"carteirinhas/d4.png",
		"carteirinhas/..-..-x.png",
		"carteirinhas/a-b.png",
		"carteirinhas/g7.png",
		"carteirinhas/h8.png",
	}, names)
}

func TestEntryNamesStayInsideFolder(t *testing.T) {
	students := []models.Student{
		{ID: "1", Name: "../../etc/evil"},
		{ID: "2", Name: "Ana/Clara"},
		{ID: "3", Name: ".."},
		{ID: "4", Name: `..\..\win`},
		{ID: "5", Name: "/absolute"},
		{ID: "6", Name: " / "},
		{ID: "7", Name: "../../etc/evil"},
	}

	for _, name := range EntryNames(students) {
		require.True(t, strings.HasPrefix(name, Folder+"/"), name)
		rest := strings.TrimPrefix(name, Folder+"/")
		assert.NotContains(t, rest, "/", name)
		assert.NotContains(t, rest, `\`, name)
		assert.NotEqual(t, "..", strings.TrimSuffix(rest, ".png"), name)
		assert.Equal(t, name, path.Clean(name), name)
	}
}

func TestPackageWritesOneEntryPerStudent(t *testing.T) {
	packager, err := NewPackager(newRenderer(t), nil)
	require.NoError(t, err)
	defer packager.Close()

	students := []models.Student{
		{ID: "1", Name: "Ana Souza", Status: models.StatusGreen},
		{ID: "2", Name: "Bruno Lima", Status: models.StatusYellow},
		{ID: "3", Name: "Ana Souza", Status: models.StatusRed},
	}

	var progress []int
	var buf bytes.Buffer
	count, err := packager.Package(context.Background(), students, &buf, WithProgress(func(done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []int{1, 2, 3}, progress)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, card.Width, cfg.Width)
		assert.Equal(t, card.Height, cfg.Height)
	}
	assert.Equal(t, []string{"carteirinhas/ana-souza.png", "carteirinhas/bruno-lima.png", "carteirinhas/ana-souza-3.png"}, names)
}

func TestPackageFailureLeavesNoOutput(t *testing.T) {
	renderer := &failingRenderer{inner: newRenderer(t), failAt: 2}
	packager, err := NewPackager(renderer, nil)
	require.NoError(t, err)
	defer packager.Close()

	var buf bytes.Buffer
	count, err := packager.Package(context.Background(), []models.Student{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}, &buf)
	require.Error(t, err)
	assert.Zero(t, count)
	assert.Zero(t, buf.Len())
}

func TestPackageEmptyBatch(t *testing.T) {
	packager, err := NewPackager(newRenderer(t), nil)
	require.NoError(t, err)
	defer packager.Close()

	_, err = packager.PackageBytes(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestPackageSerialisesSurfaceAccess(t *testing.T) {
	renderer := &overlapRenderer{}
	packager, err := NewPackager(renderer, nil)
	require.NoError(t, err)
	defer packager.Close()

	students := []models.Student{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = packager.PackageBytes(context.Background(), students)
		}()
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&renderer.overlap))
}

func TestPackageAfterCloseFails(t *testing.T) {
	packager, err := NewPackager(newRenderer(t), nil)
	require.NoError(t, err)
	require.NoError(t, packager.Close())

	_, err = packager.PackageBytes(context.Background(), []models.Student{{ID: "1", Name: "A"}})
	assert.ErrorIs(t, err, card.ErrSurfaceUnavailable)
}

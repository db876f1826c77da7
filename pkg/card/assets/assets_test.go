package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImageFormats(t *testing.T) {
	img, err := DecodeImage(pngBytes(t, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, image.NewRGBA(image.Rect(0, 0, 3, 3)), nil))
	img, err = DecodeImage(jpg.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dy())

	_, err = DecodeImage([]byte("not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = DecodeImage(nil)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestParseDataURL(t *testing.T) {
	raw := pngBytes(t, 1, 1)
	encoded := base64.StdEncoding.EncodeToString(raw)

	got, err := ParseDataURL("data:image/png;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = ParseDataURL(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = ParseDataURL("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDataURL("data:image/png,plain")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	_, err = ParseDataURL("data:image/png;base64,@@@")
	assert.ErrorIs(t, err, ErrInvalidDataURL)
}

func TestSniff(t *testing.T) {
	assert.Equal(t, "image/png", Sniff(pngBytes(t, 1, 1)))
	assert.Empty(t, Sniff([]byte("text")))
}

func TestLogoFetcherCachesRemoteLogo(t *testing.T) {
	var calls int32
	logo := pngBytes(t, 20, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(logo)
	}))
	defer srv.Close()

	var hits, misses int
	fetcher := NewLogoFetcher(srv.URL, WithCache(2, time.Minute), WithCacheObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))

	for i := 0; i < 3; i++ {
		img, err := fetcher.Logo(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 20, img.Bounds().Dx())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

func TestLogoFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	fetcher := NewLogoFetcher(srv.URL, WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := fetcher.Logo(context.Background())
	assert.ErrorIs(t, err, ErrLogoUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLogoFetcherBacksOffAfterFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := NewLogoFetcher(srv.URL)
	_, err := fetcher.Logo(context.Background())
	require.ErrorIs(t, err, ErrLogoUnavailable)
	_, err = fetcher.Logo(context.Background())
	require.ErrorIs(t, err, ErrLogoUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	fetcher.Purge()
	_, err = fetcher.Logo(context.Background())
	require.ErrorIs(t, err, ErrLogoUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLogoFetcherReadsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 8, 8), 0o600))

	img, err := NewLogoFetcher(path).Logo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = NewLogoFetcher("").Logo(context.Background())
	assert.ErrorIs(t, err, ErrLogoUnavailable)
}

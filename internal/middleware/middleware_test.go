package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type observation struct {
	method string
	path   string
	status int
}

type observerStub struct {
	mu  sync.Mutex
	got []observation
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, observation{method: method, path: path, status: status})
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/students/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/students/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if len(observer.got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observer.got))
	}
	if observer.got[0].path != "/students/:id" || observer.got[0].status != http.StatusNoContent {
		t.Fatalf("unexpected observation: %+v", observer.got[0])
	}
	if observer.got[1].path != "unmatched" || observer.got[1].status != http.StatusNotFound {
		t.Fatalf("unexpected observation: %+v", observer.got[1])
	}
}

func TestMetricsMiddlewareWithoutObserver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics(nil))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestGenerationGuardRejectsConcurrentRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	entered := make(chan struct{})
	release := make(chan struct{})

	router := gin.New()
	guard := GenerationGuard()
	router.POST("/cards/archive", guard, func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	router.GET("/students/:id/card.png", guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/cards/archive", nil))
	}()
	<-entered

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/students/1/card.png", nil))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %d", second.Code)
	}
	if got := second.Header().Get(generationHeader); got != "busy" {
		t.Fatalf("unexpected generation header: %q", got)
	}

	close(release)
	<-done
	if first.Code != http.StatusOK {
		t.Fatalf("unexpected status for first request: %d", first.Code)
	}

	third := httptest.NewRecorder()
	router.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/students/1/card.png", nil))
	if third.Code != http.StatusOK {
		t.Fatalf("expected guard to be released, got %d", third.Code)
	}
}

func TestGenerationGuardInstancesAreIndependent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	entered := make(chan struct{})
	release := make(chan struct{})

	router := gin.New()
	router.POST("/cards/archive", GenerationGuard(), func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	router.POST("/batches", GenerationGuard(), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/cards/archive", nil))
	}()
	<-entered

	other := httptest.NewRecorder()
	router.ServeHTTP(other, httptest.NewRequest(http.MethodPost, "/batches", nil))
	close(release)
	<-done

	if other.Code != http.StatusAccepted {
		t.Fatalf("separate guard should not block, got %d", other.Code)
	}
}

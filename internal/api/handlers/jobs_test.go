package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/simples-batch/internal/engine"
	"github.com/nexconsult/simples-batch/internal/jobs"
	"github.com/nexconsult/simples-batch/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type memStore struct{}

func (memStore) Load(context.Context) (map[string]models.Status, error) {
	return map[string]models.Status{}, nil
}

func (memStore) Save(context.Context, map[string]models.Status) error {
	return nil
}

type resolverFunc func(ctx context.Context, cnpj string) models.Outcome

func (f resolverFunc) Resolve(ctx context.Context, cnpj string) models.Outcome {
	return f(ctx, cnpj)
}

func newTestRouter() (*gin.Engine, *jobs.Registry) {
	gin.SetMode(gin.TestMode)

	factory := func(models.Request) *engine.Engine {
		eng := engine.New(memStore{}, resolverFunc(func(context.Context, string) models.Outcome {
			return models.Outcome{Status: models.StatusSim, Provider: "cnpja_open"}
		}), testLogger())
		eng.Heartbeat = 50 * time.Millisecond
		eng.RoundWaitUnit = time.Millisecond
		return eng
	}
	registry := jobs.NewRegistry(factory, testLogger())
	defaults := models.Request{Workers: 4, DelaySeconds: 0.001, ReprocessRounds: 2}
	handler := NewJobsHandler(registry, defaults, testLogger())

	router := gin.New()
	router.POST("/jobs", handler.Submit)
	router.GET("/jobs", handler.List)
	router.GET("/jobs/:id", handler.Get)
	router.DELETE("/jobs/:id", handler.Stop)
	return router, registry
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestSubmitAcceptsValidJob(t *testing.T) {
	router, registry := newTestRouter()

	recorder := doRequest(router, http.MethodPost, "/jobs",
		`{"rows":[{"linha":2,"cnpj":"11.222.333/0001-81"}]}`)

	require.Equal(t, http.StatusAccepted, recorder.Code)

	var job jobs.Job
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 1, job.Total)

	_, ok := registry.Get(job.ID)
	assert.True(t, ok)
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doRequest(router, http.MethodPost, "/jobs", `{"rows":`)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "INVALID_REQUEST", response.Code)
}

func TestSubmitRejectsEmptyRows(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doRequest(router, http.MethodPost, "/jobs", `{"rows":[]}`)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "NO_ROWS", response.Code)
}

func TestSubmitValidatesBounds(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doRequest(router, http.MethodPost, "/jobs",
		`{"rows":[{"linha":2,"cnpj":"11222333000181"}],"workers":99}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "INVALID_WORKERS", response.Code)

	recorder = doRequest(router, http.MethodPost, "/jobs",
		`{"rows":[{"linha":2,"cnpj":"11222333000181"}],"reprocess_rounds":11}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "INVALID_ROUNDS", response.Code)
}

func TestGetJobNotFound(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doRequest(router, http.MethodGet, "/jobs/nope", "")

	require.Equal(t, http.StatusNotFound, recorder.Code)
	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "JOB_NOT_FOUND", response.Code)
}

func TestStopJobNotFound(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doRequest(router, http.MethodDelete, "/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListJobs(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doRequest(router, http.MethodPost, "/jobs",
		`{"rows":[{"linha":2,"cnpj":"11222333000181"}]}`)
	require.Equal(t, http.StatusAccepted, recorder.Code)

	recorder = doRequest(router, http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Jobs []jobs.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Len(t, response.Jobs, 1)
}

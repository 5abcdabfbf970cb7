package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authService "github.com/allisson/credentials/internal/auth/service"
	"github.com/allisson/credentials/internal/config"
	credentialsHTTP "github.com/allisson/credentials/internal/credentials/http"
	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/credentials/usecase/mocks"
	"github.com/allisson/credentials/internal/metrics"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer builds a server with a full router over a mocked manager.
func setupTestServer(
	t *testing.T,
	cfg *config.Config,
	storage StoragePinger,
) (*Server, *mocks.MockCredentialManager) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	manager := &mocks.MockCredentialManager{}
	logger := discardLogger()

	server := NewServer(storage, "localhost", 8080, logger)
	server.SetupRouter(ctx, cfg, credentialsHTTP.NewCredentialHandler(manager, logger), authService.NewTokenService(), nil)
	return server, manager
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.GetHandler().ServeHTTP(w, req)
	return w
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, &config.Config{}, nil)

	w := serve(server, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestServer_ReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		storage    StoragePinger
		wantCode   int
		wantStatus string
		wantStore  string
	}{
		{
			name:       "nil storage",
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			wantStore:  "error",
		},
		{
			name:       "storage down",
			storage:    pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			wantStore:  "error",
		},
		{
			name:       "storage up",
			storage:    pingerFunc(func(context.Context) error { return nil }),
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			wantStore:  "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := setupTestServer(t, &config.Config{}, tt.storage)

			w := serve(server, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantCode, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStatus, response["status"])

			components, ok := response["components"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.wantStore, components["storage"])
		})
	}
}

func TestServer_RequestIDHeader(t *testing.T) {
	server, _ := setupTestServer(t, &config.Config{}, nil)

	w := serve(server, httptest.NewRequest(http.MethodGet, "/health", nil))

	requestID := w.Header().Get("X-Request-Id")
	parsed, err := uuid.Parse(requestID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestServer_NotFoundAndNoMetricsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, &config.Config{}, nil)

	assert.Equal(t, http.StatusNotFound, serve(server, httptest.NewRequest(http.MethodGet, "/nonexistent", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(server, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestServer_CredentialRoutes(t *testing.T) {
	t.Run("Success_Unauthenticated", func(t *testing.T) {
		server, manager := setupTestServer(t, &config.Config{}, nil)
		manager.On("List", mock.Anything, mock.Anything).Return([]domain.CredentialID{"a"}, nil).Once()

		w := serve(server, httptest.NewRequest(http.MethodGet, "/v1/credentials", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":["a"]}`, w.Body.String())
		manager.AssertExpectations(t)
	})

	t.Run("Error_AuthenticationRequired", func(t *testing.T) {
		tokenService := authService.NewTokenService()
		token, hash, err := tokenService.GenerateToken()
		require.NoError(t, err)

		server, manager := setupTestServer(t, &config.Config{APITokenHash: hash}, nil)
		manager.On("List", mock.Anything, mock.Anything).Return([]domain.CredentialID{}, nil).Once()

		w := serve(server, httptest.NewRequest(http.MethodGet, "/v1/credentials", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		req := httptest.NewRequest(http.MethodGet, "/v1/credentials", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		assert.Equal(t, http.StatusUnauthorized, serve(server, req).Code)

		req = httptest.NewRequest(http.MethodGet, "/v1/credentials", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, serve(server, req).Code)

		// health stays public
		assert.Equal(t, http.StatusOK, serve(server, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
		manager.AssertExpectations(t)
	})

	t.Run("Error_RateLimited", func(t *testing.T) {
		server, manager := setupTestServer(t, &config.Config{
			RateLimitEnabled:        true,
			RateLimitRequestsPerSec: 0.001,
			RateLimitBurst:          1,
		}, nil)
		manager.On("List", mock.Anything, mock.Anything).Return([]domain.CredentialID{}, nil).Once()

		assert.Equal(t, http.StatusOK, serve(server, httptest.NewRequest(http.MethodGet, "/v1/credentials", nil)).Code)

		w := serve(server, httptest.NewRequest(http.MethodGet, "/v1/credentials", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		manager.AssertExpectations(t)
	})
}

func TestServer_StartRequiresRouter(t *testing.T) {
	server := NewServer(nil, "localhost", 0, discardLogger())
	assert.Error(t, server.Start(context.Background()))
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server, _ := setupTestServer(t, &config.Config{}, nil)
	server.server.Addr = "127.0.0.1:0"

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestCustomLoggerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"productos/internal/events"
	"productos/internal/models"
	"productos/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	events []events.ProductEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.ProductEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newMemoryStore(t *testing.T) *repositories.MemoryProductRepository {
	t.Helper()
	store := repositories.NewMemoryProductRepository()
	for _, product := range models.SeedProducts() {
		require.NoError(t, store.Create(context.Background(), &product))
	}
	return store
}

func TestNewApp_RootRedirectsToDocs(t *testing.T) {
	app := NewApp(newMemoryStore(t), nil, "/api")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/docs", resp.Header.Get("Location"))
}

func TestNewApp_Health(t *testing.T) {
	store := newMemoryStore(t)
	_, err := store.SoftDelete(context.Background(), 1)
	require.NoError(t, err)
	app := NewApp(store, nil, "/api")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["database"])
	assert.Equal(t, true, body["connected"])
	// Soft-deleted rows still count.
	assert.Equal(t, float64(3), body["totalProducts"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestNewApp_DocsUseConfiguredPrefix(t *testing.T) {
	app := NewApp(newMemoryStore(t), nil, "/v2")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `url: "/v2"`)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/v2/products", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/products", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewApp_PublishesProductEvents(t *testing.T) {
	publisher := &recordingPublisher{}
	app := NewApp(newMemoryStore(t), publisher, "/api")

	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"Monitor","price":300,"stock":5}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPut, "/api/products/4", strings.NewReader(`{"name":"Monitor","price":280,"stock":5}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/products/4", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A failed write publishes nothing.
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/products/4", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.Len(t, publisher.events, 3)
	assert.Equal(t, events.ProductCreated, publisher.events[0].Type)
	assert.Equal(t, events.ProductUpdated, publisher.events[1].Type)
	assert.True(t, publisher.events[1].Product.Price.Equal(decimal.NewFromInt(280)))
	assert.Equal(t, events.ProductDeleted, publisher.events[2].Type)
	assert.False(t, publisher.events[2].Product.Active)
	for _, event := range publisher.events {
		assert.Equal(t, uint(4), event.Product.ID)
	}
}

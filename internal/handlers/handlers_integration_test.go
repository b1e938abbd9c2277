package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"productos/internal/config"
	"productos/internal/database"
	"productos/internal/handlers"
	"productos/internal/middleware"
	"productos/internal/models"
	"productos/internal/repositories"
	"productos/internal/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and the
// product handlers. seed controls whether the sample products are inserted.
func setupApp(t *testing.T, seed bool) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(config.DriverSQLite, dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	if seed {
		_, err = database.Prepare(context.Background(), db)
		require.NoError(t, err)
	} else {
		require.NoError(t, db.AutoMigrate(&models.Product{}))
	}

	productRepo := repositories.NewGORMProductRepository(db)
	productService := services.NewProductService(productRepo, nil)
	productHandler := handlers.NewProductHandler(productService)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	productHandler.RegisterRoutes(app.Group("/api"))
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestListProducts_SeededCatalog(t *testing.T) {
	app := setupApp(t, true)

	resp := doRequest(t, app, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var products []models.Product
	decode(t, resp, &products)
	require.Len(t, products, 3)
	assert.Equal(t, "Laptop Gaming", products[0].Name)
	assert.Equal(t, "Mouse Inalámbrico", products[1].Name)
	assert.Equal(t, "Teclado Mecánico", products[2].Name)
	assert.True(t, products[0].ID < products[1].ID && products[1].ID < products[2].ID)
}

func TestProductLifecycle(t *testing.T) {
	app := setupApp(t, true)

	// --- Create ---
	resp := doRequest(t, app, http.MethodPost, "/api/products", map[string]interface{}{
		"id":          99,
		"name":        "Monitor",
		"description": "Monitor 27 pulgadas",
		"price":       300,
		"stock":       5,
		"active":      false,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Product
	decode(t, resp, &created)
	assert.Equal(t, uint(4), created.ID)
	assert.True(t, created.Active)
	assert.Equal(t, "300", created.Price.String())
	assert.False(t, created.CreatedAt.IsZero())
	assert.True(t, strings.HasSuffix(resp.Header.Get(fiber.HeaderLocation), "/api/products/4"))

	// --- Get ---
	resp = doRequest(t, app, http.MethodGet, "/api/products/4", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Product
	decode(t, resp, &fetched)
	assert.Equal(t, "Monitor", fetched.Name)
	require.NotNil(t, fetched.Description)
	assert.Equal(t, "Monitor 27 pulgadas", *fetched.Description)

	// --- Update ---
	resp = doRequest(t, app, http.MethodPut, "/api/products/4", map[string]interface{}{
		"id":    4,
		"name":  "Monitor Curvo",
		"price": 349.999,
		"stock": 3,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Product
	decode(t, resp, &updated)
	assert.Equal(t, "Monitor Curvo", updated.Name)
	assert.Nil(t, updated.Description)
	assert.Equal(t, "350", updated.Price.String())
	assert.Equal(t, 3, updated.Stock)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	// --- Delete twice ---
	resp = doRequest(t, app, http.MethodDelete, "/api/products/4", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted map[string]string
	decode(t, resp, &deleted)
	assert.Equal(t, "Product 4 deleted successfully", deleted["message"])

	resp = doRequest(t, app, http.MethodDelete, "/api/products/4", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodGet, "/api/products/4", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var notFound map[string]string
	decode(t, resp, &notFound)
	assert.Equal(t, "Product with ID 4 not found", notFound["message"])

	resp = doRequest(t, app, http.MethodPut, "/api/products/4", map[string]interface{}{
		"name": "Monitor", "price": 1, "stock": 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Deleted products stay visible to an inclusive search only.
	resp = doRequest(t, app, http.MethodGet, "/api/products/search?name=monitor", nil)
	var active []models.Product
	decode(t, resp, &active)
	assert.Empty(t, active)

	resp = doRequest(t, app, http.MethodGet, "/api/products/search?name=monitor&includeInactive=true", nil)
	var all []models.Product
	decode(t, resp, &all)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)
}

func TestCreateProduct_Validation(t *testing.T) {
	app := setupApp(t, false)

	testCases := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{"missing name", map[string]interface{}{"price": 10, "stock": 1}, "name"},
		{"blank name", map[string]interface{}{"name": "   ", "price": 1}, "name"},
		{"name too long", map[string]interface{}{"name": strings.Repeat("x", 101), "price": 10}, "name"},
		{"description too long", map[string]interface{}{"name": "Cable", "description": strings.Repeat("x", 501), "price": 10}, "description"},
		{"missing price", map[string]interface{}{"name": "Cable", "stock": 1}, "price"},
		{"negative price", map[string]interface{}{"name": "Cable", "price": -1}, "price"},
		{"negative stock", map[string]interface{}{"name": "Cable", "price": 1, "stock": -5}, "stock"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, app, http.MethodPost, "/api/products", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body struct {
				Message string            `json:"message"`
				Errors  map[string]string `json:"errors"`
			}
			decode(t, resp, &body)
			assert.Equal(t, "Validation failed", body.Message)
			assert.Contains(t, body.Errors, tc.field)
		})
	}

	// A free product is fine.
	resp := doRequest(t, app, http.MethodPost, "/api/products", map[string]interface{}{"name": "Sticker", "price": 0})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateProduct_IDMismatch(t *testing.T) {
	app := setupApp(t, true)

	resp := doRequest(t, app, http.MethodPut, "/api/products/1", map[string]interface{}{
		"id": 2, "name": "Laptop", "price": 1000, "stock": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decode(t, resp, &body)
	assert.Contains(t, body.Errors, "id")

	resp = doRequest(t, app, http.MethodPut, "/api/products/1", map[string]interface{}{
		"name": "\t ", "price": 1000, "stock": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decode(t, resp, &body)
	assert.Contains(t, body.Errors, "name")

	// Nothing was written.
	resp = doRequest(t, app, http.MethodGet, "/api/products/1", nil)
	var product models.Product
	decode(t, resp, &product)
	assert.Equal(t, "Laptop Gaming", product.Name)
}

func TestProductID_Invalid(t *testing.T) {
	app := setupApp(t, false)

	for _, target := range []string{"/api/products/abc", "/api/products/0", "/api/products/-3"} {
		resp := doRequest(t, app, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		resp.Body.Close()
	}
}

func TestSearchProducts(t *testing.T) {
	app := setupApp(t, true)

	testCases := []struct {
		name     string
		query    string
		expected []string
	}{
		{"price range", "minPrice=50&maxPrice=2000", []string{"Laptop Gaming", "Teclado Mecánico"}},
		{"min price only", "minPrice=100", []string{"Laptop Gaming"}},
		{"name case-insensitive", "name=LAPTOP", []string{"Laptop Gaming"}},
		{"matches description", "name=rgb", []string{"Teclado Mecánico"}},
		{"blank name", "name=%20%20", []string{"Laptop Gaming", "Mouse Inalámbrico", "Teclado Mecánico"}},
		{"no match", "name=impresora", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, app, http.MethodGet, "/api/products/search?"+tc.query, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var products []models.Product
			decode(t, resp, &products)
			names := []string{}
			for _, p := range products {
				names = append(names, p.Name)
			}
			assert.Equal(t, tc.expected, names)
		})
	}

	for _, query := range []string{"minPrice=cheap", "maxPrice=1e", "includeInactive=maybe"} {
		resp := doRequest(t, app, http.MethodGet, "/api/products/search?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		resp.Body.Close()
	}
}

func TestGetStats(t *testing.T) {
	app := setupApp(t, true)

	resp := doRequest(t, app, http.MethodGet, "/api/products/stats", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]interface{}
	decode(t, resp, &stats)
	assert.Equal(t, float64(3), stats["count"])
	assert.Equal(t, float64(90), stats["totalStock"])
	assert.Equal(t, 533.33, stats["avgPrice"])
	assert.Equal(t, float64(1500), stats["maxPrice"])
	assert.Equal(t, float64(25), stats["minPrice"])

	// Soft-deleted products drop out of the aggregates.
	resp = doRequest(t, app, http.MethodDelete, "/api/products/1", nil)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodGet, "/api/products/stats", nil)
	decode(t, resp, &stats)
	assert.Equal(t, float64(2), stats["count"])
	assert.Equal(t, float64(80), stats["totalStock"])
	assert.Equal(t, float64(50), stats["avgPrice"])
	assert.Equal(t, float64(75), stats["maxPrice"])
}

func TestGetStats_EmptyCatalog(t *testing.T) {
	app := setupApp(t, false)

	resp := doRequest(t, app, http.MethodGet, "/api/products/stats", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]interface{}
	decode(t, resp, &stats)
	assert.Equal(t, float64(0), stats["count"])
	assert.Equal(t, float64(0), stats["totalStock"])
	assert.Nil(t, stats["avgPrice"])
	assert.Nil(t, stats["maxPrice"])
	assert.Nil(t, stats["minPrice"])
}

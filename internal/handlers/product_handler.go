package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"productos/internal/models"
	"productos/internal/repositories"
	"productos/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the product routes on router.
// The fixed paths go first so they are not captured by /:id.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/stats", h.HandleGetStats)
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts lists active products ordered by id.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleGetProductByID returns one active product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return badRequest(c, "Invalid product ID", err)
	}

	product, err := h.service.GetProductByID(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "Could not retrieve product", id)
	}
	return c.JSON(product)
}

// HandleCreateProduct validates the body and creates a product.
// Client-supplied id, created_at and active are ignored.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input models.ProductInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := h.validate.Struct(input); err != nil {
		return validationFailed(c, validationMessages(err))
	}

	product, err := h.service.CreateProduct(c.UserContext(), input)
	if err != nil {
		return h.fail(c, err, "Could not create product")
	}

	c.Location(fmt.Sprintf("%s%s/%d", c.BaseURL(), strings.TrimSuffix(c.Path(), "/"), product.ID))
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct overwrites name, description, price and stock.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return badRequest(c, "Invalid product ID", err)
	}

	var input models.ProductInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	// An omitted body id means "the one in the path".
	if input.ID != 0 && input.ID != id {
		return validationFailed(c, map[string]string{
			"id": fmt.Sprintf("Body id %d does not match path id %d", input.ID, id),
		})
	}
	if err := h.validate.Struct(input); err != nil {
		return validationFailed(c, validationMessages(err))
	}

	product, err := h.service.UpdateProduct(c.UserContext(), id, input)
	if err != nil {
		return h.fail(c, err, "Could not update product", id)
	}
	return c.JSON(product)
}

// HandleDeleteProduct soft-deletes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return badRequest(c, "Invalid product ID", err)
	}

	if _, err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return h.fail(c, err, "Could not delete product", id)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %d deleted successfully", id),
	})
}

// HandleSearchProducts filters by name/description substring and price range.
// Query: name, minPrice, maxPrice, includeInactive.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	var filter models.ProductFilter

	if name := strings.TrimSpace(c.Query("name")); name != "" {
		filter.Name = &name
	}
	for _, bound := range []struct {
		key string
		dst **decimal.Decimal
	}{
		{"minPrice", &filter.MinPrice},
		{"maxPrice", &filter.MaxPrice},
	} {
		raw := strings.TrimSpace(c.Query(bound.key))
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return badRequest(c, fmt.Sprintf("Invalid %s", bound.key), err)
		}
		*bound.dst = &value
	}
	if raw := strings.TrimSpace(c.Query("includeInactive")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "Invalid includeInactive", err)
		}
		filter.IncludeInactive = include
	}

	products, err := h.service.SearchProducts(c.UserContext(), filter)
	if err != nil {
		return h.fail(c, err, "Could not search products")
	}
	return c.JSON(products)
}

// HandleGetStats returns count, total stock and price aggregates.
func (h *ProductHandler) HandleGetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStats(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Could not compute product statistics")
	}
	return c.JSON(stats)
}

// fail maps store errors to status codes. ids is the product id, if any.
func (h *ProductHandler) fail(c *fiber.Ctx, err error, message string, ids ...uint) error {
	var id uint
	if len(ids) > 0 {
		id = ids[0]
	}

	switch {
	case errors.Is(err, repositories.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %d not found", id),
		})
	case errors.Is(err, repositories.ErrProductConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %d was modified by another request", id),
			"error":   err.Error(),
		})
	}

	log.WithFields(log.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).WithError(err).Error(message)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func productID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(id), nil
}

func badRequest(c *fiber.Ctx, message string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func validationFailed(c *fiber.Ctx, errorMessages map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

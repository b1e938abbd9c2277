package docs

import (
	"embed"
	"strings"

	"github.com/gofiber/fiber/v2"
)

//go:embed openapi.yaml swagger.html
var fs embed.FS

// prefixPlaceholder is replaced with the configured route prefix when the
// OpenAPI document is served.
const prefixPlaceholder = "{{API_PREFIX}}"

// RegisterRoutes mounts the Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml.
func RegisterRoutes(router fiber.Router, apiPrefix string) {
	router.Get("/docs", SwaggerUIHandler())
	router.Get("/docs/openapi.yaml", OpenAPIHandler(apiPrefix))
}

// OpenAPIHandler serves the embedded OpenAPI document.
func OpenAPIHandler(apiPrefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := fs.ReadFile("openapi.yaml")
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "openapi not found")
		}
		server := apiPrefix
		if server == "" {
			server = "/"
		}
		c.Set(fiber.HeaderContentType, "application/yaml; charset=utf-8")
		return c.SendString(strings.ReplaceAll(string(b), prefixPlaceholder, server))
	}
}

// SwaggerUIHandler serves the embedded Swagger UI page.
func SwaggerUIHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := fs.ReadFile("swagger.html")
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "swagger ui not found")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(b)
	}
}

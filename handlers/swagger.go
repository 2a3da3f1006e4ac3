package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>veripass-reader — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document for the reader service endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "veripass-reader", "version": "v0.1.0" },
  "paths": {
    "/api/v1/mrz/parse": {
      "post": { "summary": "Parse a machine readable zone", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"lines":{"type":"array","items":{"type":"string"}}}}}}}, "responses": { "200": { "description": "decoded zone with check results" }, "422": { "description": "unrecognised line shape" } } }
    },
    "/api/v1/mrz/validate": {
      "post": { "summary": "Validate MRZ check digits", "responses": { "200": { "description": "validity and failed checks" } } }
    },
    "/api/v1/access/bac": {
      "post": { "summary": "Derive basic access control keys", "responses": { "200": { "description": "seed, kEnc and kMac (hex)" } } }
    },
    "/api/v1/access/pace": {
      "post": { "summary": "Derive the PACE password and suite parameters", "responses": { "200": { "description": "password and supported suites" }, "422": { "description": "unsupported suite OID" } } }
    },
    "/api/v1/readiness": {
      "post": { "summary": "Pre-read readiness report", "responses": { "200": { "description": "three-line readiness report" } } }
    },
    "/api/v1/readings": {
      "post": { "summary": "Record a read attempt", "responses": { "201": { "description": "reading id" } } },
      "get": { "summary": "List readings (device, outcome, category, since, limit filters)", "responses": { "200": { "description": "reading list" } } }
    },
    "/api/v1/readings/{id}/trace": {
      "post": { "summary": "Upload an APDU trace for a reading", "responses": { "201": { "description": "stored object key" } } }
    },
    "/api/v1/diagnostics/{category}": {
      "get": { "summary": "Troubleshooting advice for a failure category", "responses": { "200": { "description": "causes and tips" }, "404": { "description": "unknown category" } } }
    },
    "/api/v1/stats": {
      "get": { "summary": "Read success-rate statistics", "responses": { "200": { "description": "aggregated outcomes" } } }
    },
    "/auth/enroll": {
      "post": { "summary": "Enroll a reader device", "responses": { "200": { "description": "token pair" }, "401": { "description": "invalid enrollment key" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate the refresh token", "responses": { "200": { "description": "new token pair" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Invalidate a device session", "responses": { "200": { "description": "logged out" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`

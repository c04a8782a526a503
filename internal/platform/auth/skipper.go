package auth

import (
	"github.com/labstack/echo/v4"
)

// publicRoutes lists "METHOD /route" pairs that bypass authentication. Keys
// use the registered route pattern so path parameters match.
var publicRoutes = map[string]bool{
	"GET /health":                     true,
	"GET /health/db":                  true,
	"POST /api/v1/auth/login":         true,
	"POST /api/v1/patients":           true,
	"GET /api/v1/doctors":             true,
	"GET /api/v1/doctors/specialties": true,
	"GET /api/v1/doctors/:id":         true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return IsPublicRoute(c.Request().Method, c.Path())
}

// IsPublicRoute reports whether method and route pattern name a public
// endpoint.
func IsPublicRoute(method, route string) bool {
	return publicRoutes[method+" "+route]
}

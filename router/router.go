package router

import (
	"github.com/labstack/echo/v4"

	"fieldops/pkg/middleware"
)

func New(
	e *echo.Echo,
	panelCtrl interface{ Register(*echo.Echo) },
	healthCtrl interface{ Health(echo.Context) error },
) *echo.Echo {
	e.Use(middleware.Operator())
	e.GET("/health", healthCtrl.Health)
	panelCtrl.Register(e)
	return e
}

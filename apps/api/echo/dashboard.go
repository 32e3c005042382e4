package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/dashboard"
)

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *dashboard.Service) {
	g.GET("/dashboard", func(ctx echo.Context) error {
		ov, err := svc.Overview(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "building overview")
		}
		return ctx.JSON(http.StatusOK, ov)
	}, jwt, adminMiddleware())
}

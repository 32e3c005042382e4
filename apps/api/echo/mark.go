package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/user"
)

type markApi struct {
	auth     *Authenticator
	users    *user.Service
	svc      *mark.Service
	validate *validator.Validate
}

func registerMarkAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *Authenticator,
	users *user.Service,
	svc *mark.Service,
	validate *validator.Validate,
) {
	api := markApi{auth: auth, users: users, svc: svc, validate: validate}

	mg := g.Group("/marks", jwt)
	mg.GET("", api.query, staffMiddleware())
	mg.PUT("", api.upsert, staffMiddleware())
	mg.GET("/me", api.own, studentMiddleware())
}

// query returns the ledger of one (class, subject, exam type).
func (api *markApi) query(ctx echo.Context) error {
	var filter mark.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to mark.QueryFilter")
	}
	marks, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing marks")
	}
	if marks == nil {
		marks = []mark.Mark{}
	}
	return ctx.JSON(http.StatusOK, marks)
}

// upsert creates the mark or overwrites the one sharing its key.
func (api *markApi) upsert(ctx echo.Context) error {
	var data mark.NewMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMark")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	m, err := api.svc.Upsert(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "saving mark")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *markApi) own(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.StudentID == "" {
		return errNoLinkedStudent
	}
	own, err := api.svc.OwnMarks(ctx.Request().Context(), ctxUsr.StudentID)
	if err != nil {
		return errors.Wrap(err, "listing own marks")
	}
	return ctx.JSON(http.StatusOK, own)
}

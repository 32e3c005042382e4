package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/school"
)

var errSchoolNotFoundInCtx = errors.New("school object not found in echo.Context")

type schoolApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *school.Service, validate *validator.Validate) {
	api := schoolApi{svc: svc, validate: validate}

	sg := g.Group("/schools", jwt, adminMiddleware())
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.DELETE("", api.destroyMultiple)

	dg := sg.Group("/:id", schoolObjectMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *schoolApi) query(ctx echo.Context) error {
	filter := new(school.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.School{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	schools, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(school.School)
	if !ok {
		return errors.Wrap(errSchoolNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *schoolApi) update(ctx echo.Context) error {
	orig, ok := ctx.Get("object").(school.School)
	if !ok {
		return errors.Wrap(errSchoolNotFoundInCtx, "retrieving object from context")
	}

	var data school.UpdateSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err := data.Validate(ctx.Request().Context(), orig, api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get("object").(school.School)
	if !ok {
		return errors.Wrap(errSchoolNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting schools")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func schoolObjectMiddleware(svc *school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == school.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding school by ID")
			}
			ctx.Set("object", s)
			return next(ctx)
		}
	}
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/roster"
)

type rosterApi struct {
	svc      *roster.Service
	validate *validator.Validate
}

func registerRosterAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *roster.Service, validate *validator.Validate) {
	api := rosterApi{svc: svc, validate: validate}

	cg := g.Group("/classes", jwt, staffMiddleware())
	cg.POST("", api.createClass, adminMiddleware())
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.GET("/:id/students", api.classStudents)

	sg := g.Group("/subjects", jwt, staffMiddleware())
	sg.POST("", api.createSubject, adminMiddleware())
	sg.GET("", api.querySubjects)

	stg := g.Group("/students", jwt, staffMiddleware())
	stg.POST("", api.createStudent, adminMiddleware())
	stg.GET("/:id", api.retrieveStudent)
}

func (api *rosterApi) createClass(ctx echo.Context) error {
	var data roster.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	c, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *rosterApi) queryClasses(ctx echo.Context) error {
	var filter roster.ClassFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []roster.Class{})
	}
	classes, err := api.svc.QueryClasses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []roster.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *rosterApi) retrieveClass(ctx echo.Context) error {
	c, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return notFoundOr(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, c)
}

// classStudents returns the roster of a class, ordered by name.
func (api *rosterApi) classStudents(ctx echo.Context) error {
	students, err := api.svc.Roster(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return notFoundOr(err, "listing class students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) createSubject(ctx echo.Context) error {
	var data roster.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	s, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *rosterApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []roster.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *rosterApi) createStudent(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}
	s, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *rosterApi) retrieveStudent(ctx echo.Context) error {
	s, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return notFoundOr(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

// notFoundOr maps roster.ErrNotFound to a 404 and wraps anything else with msg.
func notFoundOr(err error, msg string) error {
	if errors.Cause(err) == roster.ErrNotFound {
		return errHttpNotFound
	}
	return errors.Wrap(err, msg)
}

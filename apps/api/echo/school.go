package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/grading"
	"github.com/trezcool/rapor/core/report"
	"github.com/trezcool/rapor/core/school"
)

const ctxObjectKey = "object"

type schoolApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, deps ServerDeps) {
	api := schoolApi{
		svc:      deps.SchoolSvc,
		validate: deps.Validate,
	}
	admin := adminMiddleware()

	cg := g.Group("/classes")
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass, admin)
	cg.GET("/lookup", api.lookupClass)
	cdg := cg.Group("/:id", api.classMiddleware)
	cdg.GET("", api.retrieveClass)
	cdg.PUT("", api.updateClass, admin)
	cdg.DELETE("", api.destroyClass, admin)

	sg := g.Group("/subjects")
	sg.GET("", api.querySubjects)
	sg.POST("", api.createSubject, admin)
	sg.GET("/:id", api.retrieveSubject)
	sg.DELETE("/:id", api.destroySubject, admin)

	kg := g.Group("/categories")
	kg.GET("", api.queryCategories)
	kg.POST("", api.createCategory, admin)
	kg.GET("/:id", api.retrieveCategory)
	kg.DELETE("/:id", api.destroyCategory, admin)

	wg := g.Group("/weights")
	wg.GET("", api.queryWeights)
	wg.PUT("", api.setWeight, admin)
	wg.DELETE("/:category_id", api.destroyWeight, admin)

	stg := g.Group("/students")
	stg.GET("", api.queryStudents)
	stg.POST("", api.createStudent)
	stg.DELETE("", api.destroyStudents)
	stg.POST("/import", api.importStudents)
	stdg := stg.Group("/:id", api.studentMiddleware)
	stdg.GET("", api.retrieveStudent)
	stdg.PUT("", api.updateStudent)
	stdg.DELETE("", api.destroyStudent)

	scg := g.Group("/scores")
	scg.GET("", api.queryScores)
	scg.POST("", api.recordScores)
	scg.DELETE("/:id", api.destroyScore)

	ag := g.Group("/attendance")
	ag.GET("", api.queryAttendance)
	ag.POST("", api.recordAttendance)

	jg := g.Group("/journals")
	jg.GET("", api.queryJournals)
	jg.POST("", api.createJournal)
	jdg := jg.Group("/:id", api.journalMiddleware)
	jdg.GET("", api.retrieveJournal)
	jdg.PUT("", api.updateJournal)
	jdg.DELETE("", api.destroyJournal)
}

// Classes

func (api *schoolApi) classMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		class, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting class")
		}
		ctx.Set(ctxObjectKey, class)
		return next(ctx)
	}
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	filter := &school.ClassFilter{
		Search:   ctx.QueryParam("search"),
		IsActive: boolParam(ctx, "is_active"),
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	class, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *schoolApi) lookupClass(ctx echo.Context) error {
	name := ctx.QueryParam("name")
	if core.CleanString(name) == "" {
		return core.NewFieldValidationError("name", "this field is required")
	}
	class, err := api.svc.FindClassByName(ctx.Request().Context(), name)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	class, ok := ctx.Get(ctxObjectKey).(school.Class)
	if !ok {
		return errors.Wrap(errObjectNotInCtx, "retrieving class from context")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	class, ok := ctx.Get(ctxObjectKey).(school.Class)
	if !ok {
		return errors.Wrap(errObjectNotInCtx, "retrieving class from context")
	}

	var data school.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(class, api.validate); err != nil {
		return err
	}

	class, err := api.svc.UpdateClass(ctx.Request().Context(), class, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *schoolApi) destroyClass(ctx echo.Context) error {
	if err := api.svc.DeleteClass(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *schoolApi) querySubjects(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *schoolApi) createSubject(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subject, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subject)
}

func (api *schoolApi) retrieveSubject(ctx echo.Context) error {
	subject, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, subject)
}

func (api *schoolApi) destroySubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Categories

func (api *schoolApi) queryCategories(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	categories, err := api.svc.QueryCategories(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	return ctx.JSON(http.StatusOK, categories)
}

func (api *schoolApi) createCategory(ctx echo.Context) error {
	var data school.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	category, err := api.svc.CreateCategory(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, category)
}

func (api *schoolApi) retrieveCategory(ctx echo.Context) error {
	category, err := api.svc.GetCategory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting category")
	}
	return ctx.JSON(http.StatusOK, category)
}

func (api *schoolApi) destroyCategory(ctx echo.Context) error {
	if err := api.svc.DeleteCategory(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Weights

func (api *schoolApi) queryWeights(ctx echo.Context) error {
	weights, err := api.svc.QueryWeights(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying weights")
	}

	gw := make([]grading.Weight, 0, len(weights))
	for _, w := range weights {
		gw = append(gw, grading.Weight{Category: w.CategoryName, Percentage: w.Percentage})
	}
	return ctx.JSON(http.StatusOK, WeightsResponse{
		Weights: weights,
		Check:   grading.CheckWeights(gw, nil),
	})
}

func (api *schoolApi) setWeight(ctx echo.Context) error {
	var data school.SetWeight
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetWeight")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	weight, err := api.svc.SetWeight(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "setting weight")
	}
	return ctx.JSON(http.StatusOK, weight)
}

func (api *schoolApi) destroyWeight(ctx echo.Context) error {
	if err := api.svc.DeleteWeight(ctx.Request().Context(), ctx.Param("category_id")); err != nil {
		return errors.Wrap(err, "deleting weight")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (api *schoolApi) studentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		student, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting student")
		}
		ctx.Set(ctxObjectKey, student)
		return next(ctx)
	}
}

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	filter := new(school.StudentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.QueryStudents(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	student, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, student)
}

// importStudents creates the students of a multipart xlsx "file" in the form's "class_id".
func (api *schoolApi) importStudents(ctx echo.Context) error {
	classID := core.CleanString(ctx.FormValue("class_id"))
	if classID == "" {
		return core.NewFieldValidationError("class_id", "this field is required")
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldValidationError("file", "this field is required")
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	data, err := report.ReadStudents(file, api.validate)
	if err != nil {
		return errors.Wrap(err, "reading students")
	}
	students, err := api.svc.ImportStudents(ctx.Request().Context(), classID, data)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusCreated, students)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	student, ok := ctx.Get(ctxObjectKey).(school.Student)
	if !ok {
		return errors.Wrap(errObjectNotInCtx, "retrieving student from context")
	}
	return ctx.JSON(http.StatusOK, student)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	student, ok := ctx.Get(ctxObjectKey).(school.Student)
	if !ok {
		return errors.Wrap(errObjectNotInCtx, "retrieving student from context")
	}

	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(student, api.validate); err != nil {
		return err
	}

	student, err := api.svc.UpdateStudent(ctx.Request().Context(), student, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, student)
}

func (api *schoolApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudents(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) destroyStudents(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteStudents(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Scores

func (api *schoolApi) queryScores(ctx echo.Context) error {
	var filter school.ScoreFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Score{})
	}

	scores, err := api.svc.QueryScores(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying scores")
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *schoolApi) recordScores(ctx echo.Context) error {
	var data school.ScoreSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreSheet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	scores, err := api.svc.RecordScores(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording scores")
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *schoolApi) destroyScore(ctx echo.Context) error {
	if err := api.svc.DeleteScore(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting score")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Attendance

func (api *schoolApi) queryAttendance(ctx echo.Context) error {
	var filter school.AttendanceFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.AttendanceRecord{})
	}

	records, err := api.svc.QueryAttendance(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *schoolApi) recordAttendance(ctx echo.Context) error {
	var data school.AttendanceSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceSheet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	records, err := api.svc.RecordAttendance(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

// Journals

// journalMiddleware loads the journal of the path and only lets its author or an admin through.
func (api *schoolApi) journalMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		journal, err := api.svc.GetJournal(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting journal")
		}
		if !claims.IsAdmin() && journal.AuthorID != claims.Subject {
			return errHttpForbidden
		}
		ctx.Set(ctxObjectKey, journal)
		return next(ctx)
	}
}

// queryJournals lists the caller's journals. Admins see every author's.
func (api *schoolApi) queryJournals(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	filter := new(school.JournalFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Journal{})
	}
	filter.Clean()
	if !claims.IsAdmin() {
		filter.AuthorID = claims.Subject
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	journals, err := api.svc.QueryJournals(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying journals")
	}
	return ctx.JSON(http.StatusOK, journals)
}

func (api *schoolApi) createJournal(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data school.NewJournal
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewJournal")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	journal, err := api.svc.CreateJournal(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating journal")
	}
	return ctx.JSON(http.StatusCreated, journal)
}

func (api *schoolApi) retrieveJournal(ctx echo.Context) error {
	journal, ok := ctx.Get(ctxObjectKey).(school.Journal)
	if !ok {
		return errors.Wrap(errObjectNotInCtx, "retrieving journal from context")
	}
	return ctx.JSON(http.StatusOK, journal)
}

func (api *schoolApi) updateJournal(ctx echo.Context) error {
	journal, ok := ctx.Get(ctxObjectKey).(school.Journal)
	if !ok {
		return errors.Wrap(errObjectNotInCtx, "retrieving journal from context")
	}

	var data school.NewJournal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewJournal")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	journal, err := api.svc.UpdateJournal(ctx.Request().Context(), journal, data)
	if err != nil {
		return errors.Wrap(err, "updating journal")
	}
	return ctx.JSON(http.StatusOK, journal)
}

func (api *schoolApi) destroyJournal(ctx echo.Context) error {
	if err := api.svc.DeleteJournal(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting journal")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	WeightsResponse struct {
		Weights []school.Weight     `json:"weights"`
		Check   grading.WeightCheck `json:"check"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/grading"
	"github.com/trezcool/rapor/core/report"
	"github.com/trezcool/rapor/core/school"
)

type recapApi struct {
	svc      *school.Service
	emailSvc core.EmailService
	validate *validator.Validate
}

func registerRecapAPI(g *echo.Group, deps ServerDeps) {
	api := recapApi{
		svc:      deps.SchoolSvc,
		emailSvc: deps.EmailSvc,
		validate: deps.Validate,
	}

	rg := g.Group("/recaps")
	rg.GET("/grades", api.grades)
	rg.GET("/grades/export", api.exportGrades)
	rg.POST("/grades/email", api.emailGrades)
	rg.GET("/attendance", api.attendance)
	rg.GET("/attendance/export", api.exportAttendance)
	rg.POST("/attendance/email", api.emailAttendance)
}

type (
	GradeRecapRequest struct {
		ClassID   string `query:"class_id" json:"class_id" validate:"required"`
		SubjectID string `query:"subject_id" json:"subject_id" validate:"required"`
		Mode      string `query:"mode" json:"mode" validate:"omitempty,oneof=zero_fill renormalize"`
	}

	AttendanceRecapRequest struct {
		ClassID string `query:"class_id" json:"class_id" validate:"required"`
		From    string `query:"from" json:"from" validate:"required,isodate"`
		To      string `query:"to" json:"to" validate:"required,isodate"`
	}

	// Recipients are the addresses a recap is mailed to.
	Recipients struct {
		To []string `json:"recipients" validate:"required,min=1,dive,email"`
	}

	GradeRecapEmailRequest struct {
		GradeRecapRequest
		Recipients
	}

	AttendanceRecapEmailRequest struct {
		AttendanceRecapRequest
		Recipients
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (r *GradeRecapRequest) clean() {
	r.ClassID = core.CleanString(r.ClassID)
	r.SubjectID = core.CleanString(r.SubjectID)
	r.Mode = core.CleanString(r.Mode, true /* lower */)
}

func (r *AttendanceRecapRequest) clean() {
	r.ClassID = core.CleanString(r.ClassID)
	r.From = core.CleanString(r.From)
	r.To = core.CleanString(r.To)
}

func (r Recipients) addresses() []mail.Address {
	addrs := make([]mail.Address, 0, len(r.To))
	for _, to := range r.To {
		addrs = append(addrs, mail.Address{Address: to})
	}
	return addrs
}

// Grades

func (api *recapApi) gradeRecap(ctx echo.Context, req GradeRecapRequest) (school.GradeRecap, error) {
	req.clean()
	if err := api.validate.Struct(req); err != nil {
		return school.GradeRecap{}, err
	}
	var mode grading.Mode
	if req.Mode != "" {
		var err error
		if mode, err = grading.ParseMode(req.Mode); err != nil {
			return school.GradeRecap{}, core.NewFieldValidationError("mode", err.Error())
		}
	}
	recap, err := api.svc.GradeRecap(ctx.Request().Context(), req.ClassID, req.SubjectID, mode)
	return recap, errors.Wrap(err, "computing grade recap")
}

func (api *recapApi) grades(ctx echo.Context) error {
	var req GradeRecapRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to GradeRecapRequest")
	}
	recap, err := api.gradeRecap(ctx, req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recap)
}

func (api *recapApi) exportGrades(ctx echo.Context) error {
	var req GradeRecapRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to GradeRecapRequest")
	}
	recap, err := api.gradeRecap(ctx, req)
	if err != nil {
		return err
	}
	f, err := report.GradeWorkbook(recap)
	if err != nil {
		return errors.Wrap(err, "building grade workbook")
	}
	return sendWorkbook(ctx, f, report.Filename(report.KindGrades, recap.Class.Name, recap.Subject.Name))
}

func (api *recapApi) emailGrades(ctx echo.Context) error {
	var req GradeRecapEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to GradeRecapEmailRequest")
	}
	if err := api.validate.Struct(req.Recipients); err != nil {
		return err
	}
	recap, err := api.gradeRecap(ctx, req.GradeRecapRequest)
	if err != nil {
		return err
	}
	msg, err := report.GradeMail(recap, req.addresses()...)
	if err != nil {
		return errors.Wrap(err, "building grade recap email")
	}
	api.emailSvc.SendMessages(msg)
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: fmt.Sprintf("grade recap sent to %d recipient(s)", len(req.Recipients.To))})
}

// Attendance

func (api *recapApi) attendanceRecap(ctx echo.Context, req AttendanceRecapRequest) (school.AttendanceRecap, error) {
	req.clean()
	if err := api.validate.Struct(req); err != nil {
		return school.AttendanceRecap{}, err
	}
	from, err := core.ParseDate(req.From)
	if err != nil {
		return school.AttendanceRecap{}, core.NewFieldValidationError("from", err.Error())
	}
	to, err := core.ParseDate(req.To)
	if err != nil {
		return school.AttendanceRecap{}, core.NewFieldValidationError("to", err.Error())
	}
	recap, err := api.svc.AttendanceRecap(ctx.Request().Context(), req.ClassID, from, to)
	return recap, errors.Wrap(err, "computing attendance recap")
}

func (api *recapApi) attendance(ctx echo.Context) error {
	var req AttendanceRecapRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to AttendanceRecapRequest")
	}
	recap, err := api.attendanceRecap(ctx, req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recap)
}

func (api *recapApi) exportAttendance(ctx echo.Context) error {
	var req AttendanceRecapRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to AttendanceRecapRequest")
	}
	recap, err := api.attendanceRecap(ctx, req)
	if err != nil {
		return err
	}
	f, err := report.AttendanceWorkbook(recap)
	if err != nil {
		return errors.Wrap(err, "building attendance workbook")
	}
	return sendWorkbook(ctx, f, report.Filename(report.KindAttendance, recap.Class.Name, recap.From, recap.To))
}

func (api *recapApi) emailAttendance(ctx echo.Context) error {
	var req AttendanceRecapEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to AttendanceRecapEmailRequest")
	}
	if err := api.validate.Struct(req.Recipients); err != nil {
		return err
	}
	recap, err := api.attendanceRecap(ctx, req.AttendanceRecapRequest)
	if err != nil {
		return err
	}
	msg, err := report.AttendanceMail(recap, req.addresses()...)
	if err != nil {
		return errors.Wrap(err, "building attendance recap email")
	}
	api.emailSvc.SendMessages(msg)
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: fmt.Sprintf("attendance recap sent to %d recipient(s)", len(req.Recipients.To))})
}

func sendWorkbook(ctx echo.Context, f *excelize.File, filename string) error {
	var buf bytes.Buffer
	if err := report.Write(&buf, f); err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, report.ContentType, buf.Bytes())
}

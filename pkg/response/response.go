package response

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/siteflow/siteflow/pkg/logger"
)

// ProblemContentType is the media type of every error body.
const ProblemContentType = "application/problem+json"

func init() {
	// Report validation failures under the names clients actually send.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	}
}

// Problem is an RFC 7807 flavored error document.
type Problem struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail"`
	Instance string            `json:"instance"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Kind classifies an AppError.
type Kind string

const (
	KindValidation   Kind = "validation-error"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not-found"
	KindConflict     Kind = "conflict"
	KindGone         Kind = "gone"
	KindTooMany      Kind = "too-many-requests"
	KindInternal     Kind = "internal-error"
)

// AppError represents a structured application error with HTTP status and kind.
type AppError struct {
	HTTPStatus int               // HTTP status code (e.g. 400, 404, 500)
	Kind       Kind              // Problem type slug
	Message    string            // Human-readable detail
	Errors     map[string]string // Field-level validation failures
}

func (e *AppError) Error() string {
	return e.Message
}

// WithField attaches a field-level failure and returns the same error.
func (e *AppError) WithField(field, msg string) *AppError {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}
	e.Errors[field] = msg
	return e
}

// Pre-defined error constructors

func NewValidation(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Kind: KindValidation, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Kind: KindUnauthorized, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Kind: KindForbidden, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Kind: KindConflict, Message: msg}
}

func NewGone(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusGone, Kind: KindGone, Message: msg}
}

func NewTooManyRequests(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusTooManyRequests, Kind: KindTooMany, Message: msg}
}

func NewInternal(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Kind: KindInternal, Message: msg}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// --- Gin response helpers ---

// OK sends a 200 response with body as-is.
func OK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// Created sends a 201 response with body as-is.
func Created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}

// PageBody is the list envelope shared by every paginated endpoint.
type PageBody struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
}

// TotalPages returns the number of pages needed for total rows at limit per page.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// Page sends a 200 paginated list.
func Page(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, PageBody{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: TotalPages(total, limit),
	})
}

// Error sends a problem response. If err is an *AppError its status and kind
// are used; otherwise the cause is logged and a generic 500 is returned.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		logger.Error().Err(err).
			Str("request_id", logger.RequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("unhandled error")
		_ = c.Error(err)
		appErr = NewInternal("an unexpected error occurred")
	}
	writeProblem(c, appErr)
}

// BindError converts a gin binding failure into a 400 problem with field errors.
func BindError(c *gin.Context, err error) {
	writeProblem(c, FromBindError(err))
}

// FromBindError maps validator errors onto field names; other decode errors
// become a plain validation error.
func FromBindError(err error) *AppError {
	appErr := NewValidation("request validation failed")
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			appErr.WithField(fe.Field(), describeTag(fe))
		}
		return appErr
	}
	appErr.Message = "malformed request: " + err.Error()
	return appErr
}

func writeProblem(c *gin.Context, appErr *AppError) {
	c.Header("Content-Type", ProblemContentType)
	c.AbortWithStatusJSON(appErr.HTTPStatus, Problem{
		Type:     "https://siteflow.dev/problems/" + string(appErr.Kind),
		Title:    http.StatusText(appErr.HTTPStatus),
		Status:   appErr.HTTPStatus,
		Detail:   appErr.Message,
		Instance: c.Request.URL.Path,
		Errors:   appErr.Errors,
	})
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "datetime":
		return "must be a date in format " + fe.Param()
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}

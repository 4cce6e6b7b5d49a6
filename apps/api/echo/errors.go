package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/core/fees"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errNoSchool      = echo.NewHTTPError(http.StatusForbidden, "token does not act for a school")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// statusFor maps a domain error to its HTTP status code.
func statusFor(err error) int {
	switch origErr := errors.Cause(err); origErr {
	case academic.ErrSessionNotFound, fees.ErrBucketNotFound:
		return http.StatusNotFound
	case academic.ErrWrongStep, academic.ErrNoAcademicYear, academic.ErrSessionBusy, academic.ErrSessionChanged:
		return http.StatusConflict
	case academic.ErrTermIndex, fees.ErrBucketID, fees.ErrNoGrades:
		return http.StatusBadRequest
	case academic.ErrNoTermsCreated:
		return http.StatusBadGateway
	default:
		switch origErr.(type) {
		case *core.ValidationError, validator.ValidationErrors:
			return http.StatusBadRequest
		case *core.ResolutionError:
			return http.StatusUnprocessableEntity
		case *core.APIError, *core.PostconditionError:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			code = statusFor(err)
			if code != http.StatusInternalServerError {
				message = core.Message(errors.Cause(err))
				break
			}

			// any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			if ctx.Echo().Debug {
				message = err.Error()
			}
			logger.Error(msg, errors.Wrap(err, msg), getContextTenant(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

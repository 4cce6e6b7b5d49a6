package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
)

// tenantMiddleware puts the school of the token in the context. Tokens without a school are rejected.
func tenantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.SchoolID == "" {
			return errNoSchool
		}
		ctx.Set(contextTenantKey, core.Tenant{
			SchoolID: claims.SchoolID,
			Subject:  claims.Subject,
			Email:    claims.Email,
		})
		return next(ctx)
	}
}

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

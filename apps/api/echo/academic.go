package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/academic"
)

type academicApi struct {
	svc academic.ServiceInterface
}

func registerAcademicAPI(g *echo.Group, svc academic.ServiceInterface) {
	api := academicApi{svc: svc}

	wg := g.Group("/academic-year-wizards")
	wg.POST("", api.start)
	wg.POST("/purge", api.purge, adminMiddleware)
	wg.GET("/:id", api.retrieve)
	wg.DELETE("/:id", api.cancel)
	wg.POST("/:id/academic-year", api.submitAcademicYear)
	wg.PUT("/:id/terms", api.setTerms)
	wg.POST("/:id/terms", api.submitTerms)
}

type (
	WizardResponse struct {
		Wizard academic.State   `json:"wizard"`
		Result *academic.Result `json:"result,omitempty"`
		Error  string           `json:"error,omitempty"`
	}

	SetTermsRequest struct {
		Terms []academic.TermDraft `json:"terms"`
	}

	PurgeResponse struct {
		Purged int `json:"purged"`
	}
)

// respond reports the wizard state. Backend failures were recorded in the saved state,
// which is returned alongside the error; any other error goes through the error handler.
func (api *academicApi) respond(ctx echo.Context, code int, state academic.State, err error) error {
	if err != nil {
		if statusFor(err) != http.StatusBadGateway || state.ID == "" {
			return err
		}
		return ctx.JSON(http.StatusBadGateway, WizardResponse{Wizard: state, Error: core.Message(err)})
	}

	resp := WizardResponse{Wizard: state}
	if state.Step == academic.StepSuccess {
		res := academic.NewWizard(&state, nil, nil).Result()
		resp.Result = &res
	}
	return ctx.JSON(code, resp)
}

func (api *academicApi) start(ctx echo.Context) error {
	state, err := api.svc.Start(ctx.Request().Context(), getContextTenant(ctx))
	if err != nil {
		return errors.Wrap(err, "starting academic year wizard")
	}
	return api.respond(ctx, http.StatusCreated, state, nil)
}

func (api *academicApi) retrieve(ctx echo.Context) error {
	state, err := api.svc.Get(ctx.Request().Context(), getContextTenant(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return api.respond(ctx, http.StatusOK, state, nil)
}

func (api *academicApi) cancel(ctx echo.Context) error {
	if err := api.svc.Cancel(ctx.Request().Context(), getContextTenant(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) submitAcademicYear(ctx echo.Context) error {
	var data academic.NewAcademicYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicYear")
	}
	state, err := api.svc.SubmitAcademicYear(ctx.Request().Context(), getContextTenant(ctx), ctx.Param("id"), data)
	return api.respond(ctx, http.StatusOK, state, err)
}

func (api *academicApi) setTerms(ctx echo.Context) error {
	var data SetTermsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetTermsRequest")
	}
	state, err := api.svc.SetTerms(ctx.Request().Context(), getContextTenant(ctx), ctx.Param("id"), data.Terms)
	return api.respond(ctx, http.StatusOK, state, err)
}

func (api *academicApi) submitTerms(ctx echo.Context) error {
	state, err := api.svc.SubmitTerms(ctx.Request().Context(), getContextTenant(ctx), ctx.Param("id"))
	return api.respond(ctx, http.StatusOK, state, err)
}

func (api *academicApi) purge(ctx echo.Context) error {
	n, err := api.svc.PurgeExpired(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "purging expired wizards")
	}
	return ctx.JSON(http.StatusOK, PurgeResponse{Purged: n})
}

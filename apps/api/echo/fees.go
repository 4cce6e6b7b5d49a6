package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/fees"
)

type feesApi struct {
	svc       fees.ServiceInterface
	snapshots SnapshotSource
}

func registerFeesAPI(g *echo.Group, svc fees.ServiceInterface, snapshots SnapshotSource) {
	api := feesApi{svc: svc, snapshots: snapshots}

	g.GET("/snapshot", api.snapshot)
	g.POST("/snapshot/refetch", api.refetch)

	bg := g.Group("/fee-buckets")
	bg.POST("", api.createBucket)
	bg.PUT("/:id", api.updateBucket)
	bg.DELETE("/:id", api.destroyBucket)

	g.POST("/fee-structures", api.createFeeStructures)
}

type (
	CreateFeeStructuresRequest struct {
		Form          fees.FeeStructureForm `json:"form"`
		GradeIDs      []string              `json:"grade_ids"`
		EnsureBuckets bool                  `json:"ensure_buckets"`
	}

	CreateFeeStructuresResponse struct {
		Buckets *core.Outcome          `json:"buckets,omitempty"`
		Form    *fees.FeeStructureForm `json:"form,omitempty"`
		Report  fees.Report            `json:"report"`
	}
)

// snapshot returns the cached school snapshot. `?refresh=true` schedules a refetch.
func (api *feesApi) snapshot(ctx echo.Context) error {
	snaps := api.snapshots.Snapshots(getContextTenant(ctx).SchoolID)
	if refresh, _ := strconv.ParseBool(ctx.QueryParam("refresh")); refresh {
		snaps.RequestRefetch()
	}
	snap, err := snaps.Snapshot(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading snapshot")
	}
	return ctx.JSON(http.StatusOK, snap)
}

// refetch schedules a debounced snapshot reload.
func (api *feesApi) refetch(ctx echo.Context) error {
	api.snapshots.Snapshots(getContextTenant(ctx).SchoolID).RequestRefetch()
	return ctx.NoContent(http.StatusAccepted)
}

func (api *feesApi) createBucket(ctx echo.Context) error {
	var data fees.NewFeeBucket
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeeBucket")
	}
	bucket, err := api.svc.CreateBucket(ctx.Request().Context(), getContextTenant(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating fee bucket")
	}
	return ctx.JSON(http.StatusCreated, bucket)
}

func (api *feesApi) updateBucket(ctx echo.Context) error {
	var data fees.UpdateFeeBucket
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFeeBucket")
	}
	bucket, err := api.svc.UpdateBucket(ctx.Request().Context(), getContextTenant(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating fee bucket")
	}
	return ctx.JSON(http.StatusOK, bucket)
}

func (api *feesApi) destroyBucket(ctx echo.Context) error {
	if err := api.svc.DeleteBucket(ctx.Request().Context(), getContextTenant(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting fee bucket")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *feesApi) createFeeStructures(ctx echo.Context) error {
	var data CreateFeeStructuresRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateFeeStructuresRequest")
	}
	tenant := getContextTenant(ctx)

	var resp CreateFeeStructuresResponse
	if data.EnsureBuckets {
		out, err := api.svc.EnsureBuckets(ctx.Request().Context(), tenant, &data.Form)
		if err != nil {
			return errors.Wrap(err, "ensuring fee buckets")
		}
		resp.Buckets = &out
		resp.Form = &data.Form
	}

	report, err := api.svc.CreateFeeStructures(ctx.Request().Context(), tenant, data.Form, data.GradeIDs)
	if err != nil {
		return errors.Wrap(err, "creating fee structures")
	}
	resp.Report = report
	return ctx.JSON(http.StatusOK, resp)
}

package waitlist

import (
	"errors"
	"net/http"

	"github.com/akeren/go-waitlist/config/router"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
)

func NewWaitlistController(service WaitlistService) *router.RESTController {
	return router.NewVersionedRESTController(
		"WaitlistController",
		"api",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.AddPostHandler(c, nil, "", createSignupHandler(service))
			rs.AddOptionsHandler(c, nil, "", preflightHandler())
			rs.AddGetHandler(c, nil, "/export", exportHandler(service))
		},
	)
}

func createSignupHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req CreateWaitlistSignupRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				logger.Warn("Rejected oversized waitlist signup payload", "limit", tooLarge.Limit)
				return router.ErrorResult(http.StatusRequestEntityTooLarge, "Request payload too large", nil)
			}
			logger.Warn("Rejected waitlist signup payload", "error", err)
			validationErrors := apperrors.FormatValidationErrors(err, &req)
			if len(validationErrors) > 0 {
				return router.BadRequestResult("Invalid request payload", validationErrors)
			}
			return router.BadRequestResult("Invalid request body", nil)
		}

		response, err := service.CreateSignup(ctx.Request.Context(), &req)
		if err != nil {
			return router.FromError(ctx, err)
		}

		return router.CreatedResult(response, "Waitlist signup")
	}
}

// CORS headers are written by the router middleware before this runs.
func preflightHandler() router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		return router.OKResult(nil, "OK")
	}
}

func exportHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		body, err := service.ExportCSV(ctx.Request.Context())
		if err != nil {
			return router.FromError(ctx, err)
		}

		return router.AttachmentResult(ExportFilename, ExportContentType, body)
	}
}

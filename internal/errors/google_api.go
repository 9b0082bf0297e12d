package errors

import (
	"context"
	stderrors "errors"

	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"google.golang.org/api/googleapi"
)

// ClassifyGoogleAPIError converts an error returned by a Google API call
// into a *utils.AppError with a stable code. The original error stays
// reachable through errors.As.
func ClassifyGoogleAPIError(service string, err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		code := utils.ErrCodeCancelled
		if stderrors.Is(err, context.DeadlineExceeded) {
			code = utils.ErrCodeTimeout
		}
		return utils.WrapAppError(utils.NewCLIError(code, err.Error()).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("service", service).
			Build(), err)
	}

	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		logger.Error("Non-API error",
			logging.F("error", err.Error()),
			logging.F("traceId", reqCtx.TraceID),
		)
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeNetworkError, err.Error()).
			WithRetryable(true).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("service", service).
			Build(), err)
	}

	var code string
	var retryable bool

	switch apiErr.Code {
	case 400:
		code = utils.ErrCodeInvalidArgument
	case 401:
		code = utils.ErrCodeAuthExpired
	case 403:
		code = utils.ErrCodePermissionDenied
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "insufficientPermissions", "insufficientScopes":
				code = utils.ErrCodeScopeInsufficient
			case "sharingRateLimitExceeded", "userRateLimitExceeded", "rateLimitExceeded":
				code = utils.ErrCodeRateLimited
				retryable = true
			case "dailyLimitExceeded":
				code = utils.ErrCodeQuotaExceeded
			case "domainPolicy":
				code = utils.ErrCodePolicyViolation
			}
		}
	case 404:
		code = utils.ErrCodeFileNotFound
	case 429:
		code = utils.ErrCodeRateLimited
		retryable = true
	case 500, 502, 503, 504:
		code = utils.ErrCodeNetworkError
		retryable = true
	default:
		code = utils.ErrCodeUnknown
		retryable = apiErr.Code >= 500
	}

	logger.Error("API error classified",
		logging.F("httpStatus", apiErr.Code),
		logging.F("errorCode", code),
		logging.F("retryable", retryable),
		logging.F("message", apiErr.Message),
		logging.F("traceId", reqCtx.TraceID),
		logging.F("service", service),
	)

	builder := utils.NewCLIError(code, apiErr.Message).
		WithHTTPStatus(apiErr.Code).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("service", service)

	if len(apiErr.Errors) > 0 {
		builder.WithDriveReason(apiErr.Errors[0].Reason)
		switch apiErr.Errors[0].Reason {
		case "sharingRateLimitExceeded", "userRateLimitExceeded", "rateLimitExceeded":
			builder.WithContext("suggestedAction", "wait before retrying")
		case "dailyLimitExceeded":
			builder.WithContext("suggestedAction", "quota will reset in 24 hours")
		case "insufficientPermissions", "insufficientScopes":
			builder.WithContext("suggestedAction", "share the root folder with the service account")
		}
	}

	switch code {
	case utils.ErrCodeAuthExpired:
		builder.WithContext("suggestedAction", "check the service account key")
	case utils.ErrCodeFileNotFound:
		if len(reqCtx.InvolvedFileIDs) > 0 {
			builder.WithContext("fileIds", reqCtx.InvolvedFileIDs)
		}
		if len(reqCtx.InvolvedParentIDs) > 0 {
			builder.WithContext("parentIds", reqCtx.InvolvedParentIDs)
		}
		builder.WithContext("suggestedAction", "verify the folder ID and that it is shared with the service account")
	}

	if apiErr.Code >= 500 && apiErr.Code <= 504 {
		builder.WithContext("serverError", true)
	}

	return utils.WrapAppError(builder.Build(), err)
}

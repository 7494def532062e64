package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/respkit/pkg/api"
)

// Logging returns middleware that logs one record per create call. Failures
// the caller caused are logged at WARN, everything else that failed at
// ERROR.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error {
			start := time.Now()
			err := next.CreateResponse(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.IsStreaming()),
				slog.Bool("background", req.IsBackground()),
				slog.Duration("duration", time.Since(start)),
			}
			if req.PreviousResponseID != nil {
				attrs = append(attrs, slog.String("previous_response_id", *req.PreviousResponseID))
			}

			level, msg := slog.LevelInfo, "response created"
			if err != nil {
				apiErr := AsAPIError(err)
				attrs = append(attrs, slog.String("error_type", string(apiErr.Type)), slog.String("error", apiErr.Message))
				level, msg = slog.LevelWarn, "response rejected"
				if HTTPStatusFromError(apiErr) >= http.StatusInternalServerError {
					level, msg = slog.LevelError, "response failed"
				}
			}
			logger.LogAttrs(ctx, level, msg, attrs...)
			return err
		})
	}
}

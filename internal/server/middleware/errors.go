package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/metrics"
	"github.com/garminwrap/garminwrap/internal/observability"
)

// panicResponse mirrors the API error envelope. It is written here directly
// because internal/errors imports this package.
type panicResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// Recovery turns a handler panic into a 500 INTERNAL_ERROR envelope. The
// stack goes to the server log, never to the client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			requestID := GetRequestID(r.Context())
			metrics.RecordPanic()
			if observability.ServerLogger != nil {
				observability.ServerLogger.Error("Recovered from handler panic",
					zap.String("panic", fmt.Sprint(recovered)),
					zap.String("endpoint", EndpointPattern(r)),
					zap.String("request_id", requestID),
					zap.ByteString("stack_trace", debug.Stack()))
			}

			var body panicResponse
			body.Error.Code = "INTERNAL_ERROR"
			body.Error.Message = "internal server error"
			body.Error.RequestID = requestID

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(body)
		}()

		next.ServeHTTP(w, r)
	})
}

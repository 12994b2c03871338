package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
)

// PanicRecovery turns a handler panic into a 500 and logs the stack. The
// panic value never reaches the client. http.ErrAbortHandler is re-raised so
// the server aborts the connection as intended.
func PanicRecovery(logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				fields := []logging.Field{
					logging.String("method", r.Method),
					logging.Path(r.URL.Path),
					logging.String("panic", fmt.Sprint(v)),
					logging.String("stack", string(debug.Stack())),
				}
				if id := GetRequestID(r); id != "" {
					fields = append(fields, logging.String("request_id", id))
				}
				logger.Error("panic in HTTP handler", fields...)
				writeError(w, http.StatusInternalServerError, "internal", "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

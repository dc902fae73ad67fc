package gateway

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	"scsb/internal/forward"
)

// ScheduleJobResponse is the scheduler's answer. Failures on the scheduler
// route are reported through Message with status 200.
type ScheduleJobResponse struct {
	Message     string  `json:"message"`
	NextRunTime *string `json:"nextRunTime"`
}

// embedErrors shapes a result for routes that never fail at the HTTP level:
// a success passes through, anything else becomes 200 with the error text.
func embedErrors(result forward.Result) (int, []byte) {
	if result.OK() {
		return http.StatusOK, result.Body
	}

	body, err := sonic.Marshal(ScheduleJobResponse{Message: embeddedMessage(result)})
	if err != nil {
		return http.StatusOK, []byte(`{"message":null,"nextRunTime":null}`)
	}
	return http.StatusOK, body
}

func embeddedMessage(result forward.Result) string {
	switch {
	case result.Kind == forward.KindDownstreamError && isErrorStatus(result.Status):
		return fmt.Sprintf("%d %s", result.Status, http.StatusText(result.Status))
	case result.Kind == forward.KindLogicalFailure:
		return result.Message
	case result.Err != nil:
		return result.Err.Error()
	default:
		return result.Kind.String()
	}
}

// isErrorStatus excludes 2xx bodies that failed to decode; those report the
// decode error instead of a status line
func isErrorStatus(status int) bool {
	return status != 0 && (status < 200 || status > 299)
}

package forward

import "net/http"

// Sentinels are the fixed bodies a route returns in place of error detail
type Sentinels struct {
	// Unavailable is returned when the downstream call never completed
	Unavailable []byte
	// Error is returned for any other downstream fault. Falls back to
	// Unavailable when nil.
	Error []byte
}

// ToOutward maps a Result onto the outward status and body:
//
//	Success          200  body unmodified
//	Unavailable      503  Unavailable sentinel
//	DownstreamError  503  Error sentinel
//	LogicalFailure   400  downstream body
func ToOutward(r Result, s Sentinels) (int, []byte) {
	switch r.Kind {
	case KindSuccess:
		return http.StatusOK, r.Body
	case KindLogicalFailure:
		return http.StatusBadRequest, r.Body
	case KindUnavailable:
		return http.StatusServiceUnavailable, s.Unavailable
	default:
		if s.Error != nil {
			return http.StatusServiceUnavailable, s.Error
		}
		return http.StatusServiceUnavailable, s.Unavailable
	}
}

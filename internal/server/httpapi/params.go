package httpapi

import (
	"net/http"
	"strconv"
)

// Pagination reads limit/offset query params. Limit defaults to 50, capped at
// 200; offset defaults to 0.
func Pagination(r *http.Request) (limit, offset int32) {
	limit = 50
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32); err == nil && v > 0 && v <= 200 {
		limit = int32(v)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 32); err == nil && v >= 0 {
		offset = int32(v)
	}
	return limit, offset
}

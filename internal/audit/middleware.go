package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kopi-pos/internal/obs"
)

// HTTPRecorder records mutating requests after they have been handled.
type HTTPRecorder struct {
	Service Service
	OnError func(error)
}

// Middleware records every non-GET request that passed through. The resource
// id is taken from the chi "id" parameter when the route has one.
func (r HTTPRecorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Service.Enabled || req.Method == http.MethodGet || req.Method == http.MethodHead {
			next.ServeHTTP(w, req)
			return
		}

		rec := obs.NewStatusRecorder(w, req)
		next.ServeHTTP(rec, req)

		entry := Entry{
			ResourceID: chi.URLParam(req, "id"),
			Route:      obs.RouteOf(req, req.URL.Path),
			Status:     rec.Status(),
		}
		if err := r.Service.Record(req.Context(), req, entry); err != nil && r.OnError != nil {
			r.OnError(err)
		}
	})
}

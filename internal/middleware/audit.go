package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/audit"
)

type EventWriter interface {
	WriteEvent(ctx context.Context, evt audit.AuditEvent) error
}

type AuditMiddleware struct {
	writer EventWriter
	async  bool
}

// NewAuditMiddleware writes events in the background unless async is false.
func NewAuditMiddleware(w EventWriter, async bool) *AuditMiddleware {
	return &AuditMiddleware{writer: w, async: async}
}

// LogRequest audits mutating requests on the routes it wraps.
func (m *AuditMiddleware) LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseCapture{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			return
		}

		evt := audit.AuditEvent{
			EventID:    uuid.New(),
			Action:     truncate(fmt.Sprintf("http.%s", strings.ToLower(r.Method)), 100),
			TargetType: "http_route",
			TargetID:   truncate(r.URL.Path, 100),
			Result:     "success",
			RequestID:  truncate(chimw.GetReqID(r.Context()), 100),
			CreatedAt:  time.Now().UTC(),
		}
		meta, _ := json.Marshal(map[string]any{"latency_ms": time.Since(start).Milliseconds(), "status": ww.status})
		evt.Metadata = meta

		if ww.status >= 400 {
			evt.Result = "failure"
			evt.ReasonCode = truncate(fmt.Sprintf("http_%d", ww.status), 50)
		}

		if ac, ok := GetAuthContext(r.Context()); ok {
			if tid, uid, err := ac.IDs(); err == nil {
				evt.TenantID = tid
				evt.ActorUserID = &uid
			}
		}

		write := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.writer.WriteEvent(ctx, evt); err != nil {
				log.Printf("[AUDIT] request event for %s: %v", evt.TargetID, err)
			}
		}
		if m.async {
			go write()
		} else {
			write()
		}
	})
}

type responseCapture struct {
	http.ResponseWriter
	status int
}

func (w *responseCapture) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

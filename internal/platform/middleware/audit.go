package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Fleur41/HealthSense/internal/platform/auth"
)

// AuditEntry describes one access to patient data.
type AuditEntry struct {
	RequestID string
	UserID    string
	Action    string // read, create
	Resource  string
	PatientID string
	Method    string
	Path      string
	Status    int
}

// Audit logs who touched which patient records under prefix (e.g. "/api/v1/").
func Audit(logger zerolog.Logger, prefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !strings.HasPrefix(path, prefix) {
				return next(c)
			}

			err := next(c)

			entry := buildAuditEntry(c, strings.TrimPrefix(path, prefix))
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					entry.Status = he.Code
				} else {
					entry.Status = http.StatusInternalServerError
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Int("status", entry.Status).
				Msg("patient_data_access")

			return err
		}
	}
}

func buildAuditEntry(c echo.Context, rel string) AuditEntry {
	req := c.Request()
	rid, _ := c.Get("request_id").(string)
	entry := AuditEntry{
		RequestID: rid,
		UserID:    auth.UserIDFromContext(req.Context()),
		Action:    "read",
		Method:    req.Method,
		Path:      req.URL.Path,
		Status:    c.Response().Status,
		Resource:  "unknown",
	}
	if req.Method == http.MethodPost || req.Method == http.MethodPut {
		entry.Action = "create"
	}

	segments := strings.Split(strings.Trim(rel, "/"), "/")
	if segments[0] != "" {
		entry.Resource = segments[0]
	}
	if entry.Resource == "patients" && len(segments) > 1 {
		if _, err := uuid.Parse(segments[1]); err == nil {
			entry.PatientID = segments[1]
			if len(segments) > 2 {
				entry.Resource = segments[2]
			}
		}
	}
	return entry
}

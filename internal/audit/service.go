package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type Service struct {
	DB    DBTX
	Spool *Spooler
}

// NewService writes to db and, when spool is non-nil, spools events the database rejects.
func NewService(db DBTX, spool *Spooler) *Service {
	return &Service{DB: db, Spool: spool}
}

func (s *Service) WriteEvent(ctx context.Context, evt AuditEvent) error {
	if evt.EventID == uuid.Nil {
		evt.EventID = uuid.New()
	}
	if evt.Result == "" {
		evt.Result = "success"
	}

	err := s.insert(ctx, evt)
	if err == nil {
		return nil
	}
	if s.Spool == nil {
		return fmt.Errorf("audit write: %w", err)
	}

	log.Printf("[AUDIT] DB write failed: %v. Spooling event %s", err, evt.EventID)
	if spoolErr := s.Spool.Append(evt); spoolErr != nil {
		log.Printf("[AUDIT] CRITICAL: spool failed for event %s: %v", evt.EventID, spoolErr)
		return fmt.Errorf("audit critical failure: %v", spoolErr)
	}
	return nil
}

func (s *Service) insert(ctx context.Context, evt AuditEvent) error {
	query := `
		INSERT INTO audit_logs (
			event_id, tenant_id, actor_user_id, action, target_type, target_id,
			result, reason_code, request_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO NOTHING
	`
	var meta interface{}
	if len(evt.Metadata) > 0 {
		meta = []byte(evt.Metadata)
	}
	_, err := s.DB.ExecContext(ctx, query,
		evt.EventID, evt.TenantID, evt.ActorUserID, evt.Action, evt.TargetType, evt.TargetID,
		evt.Result, evt.ReasonCode, evt.RequestID, meta, evt.CreatedAt,
	)
	return err
}

// QueryEvents returns the newest events for a tenant.
func (s *Service) QueryEvents(ctx context.Context, f Filter) ([]AuditEvent, error) {
	q := `SELECT id, event_id, tenant_id, actor_user_id, action, target_type, target_id, result, created_at, metadata
	      FROM audit_logs
	      WHERE tenant_id = $1`
	args := []interface{}{f.TenantID}
	idx := 2

	if f.Action != "" {
		q += fmt.Sprintf(" AND action = $%d", idx)
		args = append(args, f.Action)
		idx++
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []AuditEvent{}
	for rows.Next() {
		var evt AuditEvent
		var targetType, targetID sql.NullString
		var meta []byte
		if err := rows.Scan(&evt.ID, &evt.EventID, &evt.TenantID, &evt.ActorUserID, &evt.Action,
			&targetType, &targetID, &evt.Result, &evt.CreatedAt, &meta); err != nil {
			return nil, err
		}
		evt.TargetType = targetType.String
		evt.TargetID = targetID.String
		if len(meta) > 0 {
			evt.Metadata = meta
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var leadsTracer = otel.Tracer("bizsite.internal.leads")

// db is the subset of pgxpool.Pool used by the repository.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := leadsTracer.Start(ctx, "leads.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("bizsite.org_id", req.OrgID),
		attribute.String("bizsite.lead.source", req.Source),
	)

	id := uuid.New()
	query := `
		INSERT INTO leads (id, org_id, session_id, name, email, phone, interest, message, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.OrgID,
		req.SessionID,
		req.Name,
		req.Email,
		req.Phone,
		req.Interest,
		req.Message,
		req.Source,
	).Scan(&createdAt); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return req.toLead(id.String(), createdAt), nil
}

const leadColumns = `id, org_id, session_id, name, email, phone, interest, message, source, created_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.OrgID,
		&lead.SessionID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Interest,
		&lead.Message,
		&lead.Source,
		&lead.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &lead, nil
}

// GetByID fetches a lead scoped to the org.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND org_id = $2`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// ListByOrg returns an org's leads, newest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error) {
	filter = filter.normalized()
	query := `SELECT ` + leadColumns + `
		FROM leads
		WHERE org_id = $1 AND ($2 = '' OR source = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, orgID, filter.Source, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

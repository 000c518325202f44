package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements ledger.Repository for PostgreSQL.
// Append relies on the UNIQUE (student_id, source_ref) constraint for
// the duplicate guarantee: no read-then-write race is possible because
// the index is the arbiter, not application code.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// Append implements ledger.Repository.
func (r *LedgerRepository) Append(ctx context.Context, event *ledger.PointEvent) error {
	query := `
		INSERT INTO point_events (
			id, student_id, subject_id, points, reason, source_ref, occurred_at, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		event.ID,
		event.StudentID,
		event.SubjectID,
		int(event.Points),
		string(event.Reason),
		string(event.SourceRef),
		event.OccurredAt,
		event.RecordedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateSource
		}
		return fmt.Errorf("failed to append point event: %w", err)
	}

	return nil
}

// GetByID implements ledger.Repository.
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*ledger.PointEvent, error) {
	query := `
		SELECT id, student_id, subject_id, points, reason, source_ref, occurred_at, recorded_at
		FROM point_events
		WHERE id = $1
	`

	event, err := r.scanEvent(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get point event: %w", err)
	}
	return event, nil
}

// ListByStudent implements ledger.Repository.
func (r *LedgerRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]*ledger.PointEvent, error) {
	query := `
		SELECT id, student_id, subject_id, points, reason, source_ref, occurred_at, recorded_at
		FROM point_events
		WHERE student_id = $1
		ORDER BY recorded_at DESC
	`
	args := []interface{}{studentID}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list point events: %w", err)
	}
	defer rows.Close()

	var events []*ledger.PointEvent
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// SumByStudent implements ledger.Repository.
func (r *LedgerRepository) SumByStudent(ctx context.Context, studentID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(points), 0)
		FROM point_events
		WHERE student_id = $1
	`

	var total int
	if err := r.conn.QueryRow(ctx, query, studentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}
	return total, nil
}

// SumBySubjectForStudents implements ledger.Repository.
func (r *LedgerRepository) SumBySubjectForStudents(ctx context.Context, subjectID string, studentIDs []string, window ledger.Window) (map[string]int, error) {
	if len(studentIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT student_id, COALESCE(SUM(points), 0)
		FROM point_events
		WHERE subject_id = $1 AND student_id = ANY($2)
	`
	args := []interface{}{subjectID, studentIDs}

	if !window.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d AND occurred_at <= $%d", len(args)+1, len(args)+2)
		args = append(args, window.Start, window.End)
	}
	query += " GROUP BY student_id"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum subject points: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]int)
	for rows.Next() {
		var studentID string
		var total int
		if err := rows.Scan(&studentID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan subject sum: %w", err)
		}
		sums[studentID] = total
	}

	return sums, rows.Err()
}

// ListOccurredAt implements ledger.Repository.
func (r *LedgerRepository) ListOccurredAt(ctx context.Context, studentID string) ([]time.Time, error) {
	query := `
		SELECT occurred_at
		FROM point_events
		WHERE student_id = $1
		ORDER BY occurred_at
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timestamps: %w", err)
	}
	defer rows.Close()

	var timestamps []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		timestamps = append(timestamps, ts)
	}

	return timestamps, rows.Err()
}

// CountByReason implements ledger.Repository.
func (r *LedgerRepository) CountByReason(ctx context.Context, studentID string) (map[ledger.Reason]int, error) {
	query := `
		SELECT reason, COUNT(*)
		FROM point_events
		WHERE student_id = $1
		GROUP BY reason
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count by reason: %w", err)
	}
	defer rows.Close()

	counts := make(map[ledger.Reason]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan reason count: %w", err)
		}
		counts[ledger.Reason(reason)] = count
	}

	return counts, rows.Err()
}

// HasSourceRef implements ledger.Repository.
func (r *LedgerRepository) HasSourceRef(ctx context.Context, studentID string, sourceRef ledger.SourceRef) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM point_events
			WHERE student_id = $1 AND source_ref = $2
		)
	`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, studentID, string(sourceRef)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check source ref: %w", err)
	}
	return exists, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanEvent.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent scans one point event row.
func (r *LedgerRepository) scanEvent(row rowScanner) (*ledger.PointEvent, error) {
	var event ledger.PointEvent
	var points int
	var reason, sourceRef string

	err := row.Scan(
		&event.ID,
		&event.StudentID,
		&event.SubjectID,
		&points,
		&reason,
		&sourceRef,
		&event.OccurredAt,
		&event.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Points = ledger.Points(points)
	event.Reason = ledger.Reason(reason)
	event.SourceRef = ledger.SourceRef(sourceRef)
	return &event, nil
}

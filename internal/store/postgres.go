package store

import (
	"context"
	"database/sql"
	"fmt"

	"pressroom/api/internal/filestage"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// querier lets the single-statement helpers run against either the pool or
// an open transaction, so cascades stay atomic.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, last_login_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.LastLoginAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ListAssignedEditors returns the distinct users holding an editorial role
// on any workflow stage of the submission.
func (s *PostgresStore) ListAssignedEditors(ctx context.Context, submissionID int64) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT u.id, u.email, u.display_name, u.last_login_at
		FROM stage_assignments sa
		JOIN users u ON u.id = sa.user_id
		WHERE sa.submission_id=$1 AND sa.role = ANY($2)
		ORDER BY u.id
	`, submissionID, []string{string(filestage.RoleManager), string(filestage.RoleSubEditor)})
	if err != nil {
		return nil, fmt.Errorf("list assigned editors: %w", err)
	}
	defer rows.Close()

	editors := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.DisplayName, &user.LastLoginAt); err != nil {
			return nil, fmt.Errorf("scan assigned editor: %w", err)
		}
		editors = append(editors, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned editors: %w", err)
	}
	return editors, nil
}

// GetStageAssignments returns the workflow stages the user is assigned to
// on the submission, with the roles held at each stage.
func (s *PostgresStore) GetStageAssignments(ctx context.Context, submissionID, userID int64) (map[filestage.WorkflowStage][]filestage.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT workflow_stage, role
		FROM stage_assignments
		WHERE submission_id=$1 AND user_id=$2
	`, submissionID, userID)
	if err != nil {
		return nil, fmt.Errorf("get stage assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[filestage.WorkflowStage][]filestage.Role)
	for rows.Next() {
		var workflowStage filestage.WorkflowStage
		var role filestage.Role
		if err := rows.Scan(&workflowStage, &role); err != nil {
			return nil, fmt.Errorf("scan stage assignment: %w", err)
		}
		assignments[workflowStage] = append(assignments[workflowStage], role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage assignments: %w", err)
	}
	return assignments, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, noteID int64) (Note, error) {
	var note Note
	err := s.db.QueryRowContext(ctx, `
		SELECT id, assoc_type, assoc_id FROM notes WHERE id=$1
	`, noteID).Scan(&note.ID, &note.AssocType, &note.AssocID)
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

func (s *PostgresStore) GetQuery(ctx context.Context, queryID int64) (Query, error) {
	var q Query
	err := s.db.QueryRowContext(ctx, `
		SELECT id, assoc_type, assoc_id, workflow_stage FROM queries WHERE id=$1
	`, queryID).Scan(&q.ID, &q.AssocType, &q.AssocID, &q.WorkflowStage)
	if err != nil {
		return Query{}, err
	}
	return q, nil
}

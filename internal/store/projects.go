package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
)

// ProjectRecord is one row of the projects table.
type ProjectRecord struct {
	Name      string
	Key       envelope.Sealed // project key wrapped under the master key
	CreatedAt time.Time
}

// ProjectSummary describes a project without any key material.
type ProjectSummary struct {
	Name        string
	CreatedAt   time.Time
	DetailCount int
}

// ProjectExists reports whether a project named name exists.
func ProjectExists(ctx context.Context, q Querier, name string) (bool, error) {
	var one int
	err := q.QueryRow(ctx, `SELECT 1 FROM projects WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking project %s: %w", name, err)
	}
	return true, nil
}

// InsertProject adds a new project row.
// Returns ErrProjectExists if the name is taken.
func InsertProject(ctx context.Context, q Querier, rec ProjectRecord) error {
	exists, err := ProjectExists(ctx, q, rec.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", kerrors.ErrProjectExists, rec.Name)
	}

	_, err = q.Exec(ctx,
		`INSERT INTO projects (name, key_nonce, key_tag, key_ciphertext, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Name, rec.Key.Nonce, rec.Key.Tag, blob(rec.Key.Ciphertext), rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting project %s: %w", rec.Name, err)
	}
	return nil
}

// GetProject loads a project row.
// Returns ErrProjectNotFound if it does not exist.
func GetProject(ctx context.Context, q Querier, name string) (ProjectRecord, error) {
	rec := ProjectRecord{Name: name}
	var created int64
	err := q.QueryRow(ctx,
		`SELECT key_nonce, key_tag, key_ciphertext, created_at FROM projects WHERE name = ?`,
		name).Scan(&rec.Key.Nonce, &rec.Key.Tag, &rec.Key.Ciphertext, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectRecord{}, fmt.Errorf("%w: %s", kerrors.ErrProjectNotFound, name)
	}
	if err != nil {
		return ProjectRecord{}, fmt.Errorf("reading project %s: %w", name, err)
	}
	rec.CreatedAt = time.UnixMilli(created)
	return rec, nil
}

// UpdateProjectKey replaces the wrapped project key of an existing project.
func UpdateProjectKey(ctx context.Context, q Querier, name string, key envelope.Sealed) error {
	res, err := q.Exec(ctx,
		`UPDATE projects SET key_nonce = ?, key_tag = ?, key_ciphertext = ? WHERE name = ?`,
		key.Nonce, key.Tag, blob(key.Ciphertext), name)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", name, err)
	}
	return requireRow(res, kerrors.ErrProjectNotFound, name)
}

// RenameProject changes a project's primary key. Details follow through
// ON UPDATE CASCADE.
// Returns ErrProjectNotFound if oldName does not exist and ErrProjectExists
// if newName is taken.
func RenameProject(ctx context.Context, q Querier, oldName, newName string) error {
	exists, err := ProjectExists(ctx, q, newName)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", kerrors.ErrProjectExists, newName)
	}

	res, err := q.Exec(ctx, `UPDATE projects SET name = ? WHERE name = ?`, newName, oldName)
	if err != nil {
		return fmt.Errorf("renaming project %s: %w", oldName, err)
	}
	return requireRow(res, kerrors.ErrProjectNotFound, oldName)
}

// DeleteProject removes a project row; its details are removed by ON DELETE CASCADE.
// Returns ErrProjectNotFound if it does not exist.
func DeleteProject(ctx context.Context, q Querier, name string) error {
	res, err := q.Exec(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", name, err)
	}
	return requireRow(res, kerrors.ErrProjectNotFound, name)
}

// ListProjects returns every project with its detail count, sorted by name.
func ListProjects(ctx context.Context, q Querier) ([]ProjectSummary, error) {
	rows, err := q.Query(ctx,
		`SELECT p.name, p.created_at, COUNT(d.key)
		 FROM projects p LEFT JOIN details d ON d.project = p.name
		 GROUP BY p.name
		 ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectSummary
	for rows.Next() {
		var s ProjectSummary
		var created int64
		if err := rows.Scan(&s.Name, &created, &s.DetailCount); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		s.CreatedAt = time.UnixMilli(created)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return out, nil
}

// requireRow turns a zero-row update or delete into the given not-found error.
func requireRow(res sql.Result, notFound error, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, name)
	}
	return nil
}

// blob keeps zero-length ciphertexts non-nil so they bind as empty blobs, not NULL.
func blob(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

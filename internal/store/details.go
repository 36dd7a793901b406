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

// DetailRecord is one row of the details table: the sealed value and both
// wrapped copies of its data key.
type DetailRecord struct {
	Project        string
	Key            string
	Value          envelope.Sealed
	MasterWrapped  envelope.Sealed
	ProjectWrapped envelope.Sealed
	UpdatedAt      time.Time
}

// DetailRef names a detail without exposing any ciphertext.
type DetailRef struct {
	Project   string
	Key       string
	UpdatedAt time.Time
}

const detailColumns = `project, key,
	value_nonce, value_tag, value_ciphertext,
	master_wrapped_nonce, master_wrapped_tag, master_wrapped_key,
	project_wrapped_nonce, project_wrapped_tag, project_wrapped_key,
	updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDetail(s scanner) (DetailRecord, error) {
	var rec DetailRecord
	var updated int64
	err := s.Scan(&rec.Project, &rec.Key,
		&rec.Value.Nonce, &rec.Value.Tag, &rec.Value.Ciphertext,
		&rec.MasterWrapped.Nonce, &rec.MasterWrapped.Tag, &rec.MasterWrapped.Ciphertext,
		&rec.ProjectWrapped.Nonce, &rec.ProjectWrapped.Tag, &rec.ProjectWrapped.Ciphertext,
		&updated)
	if err != nil {
		return DetailRecord{}, err
	}
	rec.UpdatedAt = time.UnixMilli(updated)
	return rec, nil
}

// PutDetail inserts a detail or replaces every blob column of an existing one.
// The project must exist; the foreign key rejects the write otherwise.
func PutDetail(ctx context.Context, q Querier, rec DetailRecord) error {
	_, err := q.Exec(ctx,
		`INSERT INTO details (`+detailColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project, key) DO UPDATE SET
			value_nonce = excluded.value_nonce,
			value_tag = excluded.value_tag,
			value_ciphertext = excluded.value_ciphertext,
			master_wrapped_nonce = excluded.master_wrapped_nonce,
			master_wrapped_tag = excluded.master_wrapped_tag,
			master_wrapped_key = excluded.master_wrapped_key,
			project_wrapped_nonce = excluded.project_wrapped_nonce,
			project_wrapped_tag = excluded.project_wrapped_tag,
			project_wrapped_key = excluded.project_wrapped_key,
			updated_at = excluded.updated_at`,
		rec.Project, rec.Key,
		rec.Value.Nonce, rec.Value.Tag, blob(rec.Value.Ciphertext),
		rec.MasterWrapped.Nonce, rec.MasterWrapped.Tag, blob(rec.MasterWrapped.Ciphertext),
		rec.ProjectWrapped.Nonce, rec.ProjectWrapped.Tag, blob(rec.ProjectWrapped.Ciphertext),
		rec.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("writing detail %s/%s: %w", rec.Project, rec.Key, err)
	}
	return nil
}

// GetDetail loads one detail row.
// Returns ErrDetailNotFound if it does not exist.
func GetDetail(ctx context.Context, q Querier, project, key string) (DetailRecord, error) {
	row := q.QueryRow(ctx,
		`SELECT `+detailColumns+` FROM details WHERE project = ? AND key = ?`,
		project, key)
	rec, err := scanDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DetailRecord{}, fmt.Errorf("%w: %s/%s", kerrors.ErrDetailNotFound, project, key)
	}
	if err != nil {
		return DetailRecord{}, fmt.Errorf("reading detail %s/%s: %w", project, key, err)
	}
	return rec, nil
}

// ProjectDetails loads every detail row of a project, sorted by key. The rows
// are fully read before returning so the caller may write on the same
// connection afterwards.
func ProjectDetails(ctx context.Context, q Querier, project string) ([]DetailRecord, error) {
	rows, err := q.Query(ctx,
		`SELECT `+detailColumns+` FROM details WHERE project = ? ORDER BY key`,
		project)
	if err != nil {
		return nil, fmt.Errorf("reading details of %s: %w", project, err)
	}
	defer rows.Close()

	var out []DetailRecord
	for rows.Next() {
		rec, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning detail: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading details of %s: %w", project, err)
	}
	return out, nil
}

// UpdateProjectWrapped replaces the project-wrapped data key copy of one detail.
func UpdateProjectWrapped(ctx context.Context, q Querier, project, key string, wrapped envelope.Sealed) error {
	res, err := q.Exec(ctx,
		`UPDATE details
		 SET project_wrapped_nonce = ?, project_wrapped_tag = ?, project_wrapped_key = ?
		 WHERE project = ? AND key = ?`,
		wrapped.Nonce, wrapped.Tag, blob(wrapped.Ciphertext), project, key)
	if err != nil {
		return fmt.Errorf("updating detail %s/%s: %w", project, key, err)
	}
	return requireRow(res, kerrors.ErrDetailNotFound, project+"/"+key)
}

// ListDetailRefs lists details sorted by project then key. An empty project
// lists every detail in the vault.
func ListDetailRefs(ctx context.Context, q Querier, project string) ([]DetailRef, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if project == "" {
		rows, err = q.Query(ctx,
			`SELECT project, key, updated_at FROM details ORDER BY project, key`)
	} else {
		rows, err = q.Query(ctx,
			`SELECT project, key, updated_at FROM details WHERE project = ? ORDER BY key`,
			project)
	}
	if err != nil {
		return nil, fmt.Errorf("listing details: %w", err)
	}
	defer rows.Close()

	var out []DetailRef
	for rows.Next() {
		var ref DetailRef
		var updated int64
		if err := rows.Scan(&ref.Project, &ref.Key, &updated); err != nil {
			return nil, fmt.Errorf("scanning detail: %w", err)
		}
		ref.UpdatedAt = time.UnixMilli(updated)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing details: %w", err)
	}
	return out, nil
}

// DeleteDetail removes one detail.
// Returns ErrDetailNotFound if it does not exist.
func DeleteDetail(ctx context.Context, q Querier, project, key string) error {
	res, err := q.Exec(ctx, `DELETE FROM details WHERE project = ? AND key = ?`, project, key)
	if err != nil {
		return fmt.Errorf("deleting detail %s/%s: %w", project, key, err)
	}
	return requireRow(res, kerrors.ErrDetailNotFound, project+"/"+key)
}

package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/db"
	"taskflow/internal/domain"
	"taskflow/internal/history"
)

const (
	stateSettings = "settings"
	stateHistory  = "history"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLRepo stores collections in relational tables (sqlite or postgres).
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQL(conn *db.Conn) SQLRepo {
	return SQLRepo{DB: conn.DB, Dialect: conn.Dialect}
}

func (r SQLRepo) q(query string) string { return r.Dialect.Rebind(query) }

func (r SQLRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

func (r SQLRepo) Close() error { return r.DB.Close() }

func (r SQLRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func scanTasks(rows *sql.Rows) ([]domain.Task, error) {
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		var row taskRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, err
		}
		t, err := row.toTask()
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r SQLRepo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	return r.listTasks(ctx, r.DB, f)
}

func (r SQLRepo) listTasks(ctx context.Context, qr queryer, f TaskFilters) ([]domain.Task, error) {
	var (
		clauses []string
		args    []any
	)
	for wire, value := range f.wireValues() {
		col, ok := ColumnFor(wire)
		if !ok {
			return nil, fmt.Errorf("unknown filter %s", wire)
		}
		if wire == "projectId" {
			value = storageProjectID(value)
		}
		clauses = append(clauses, col+"=?")
		args = append(args, value)
	}
	query := selectTasks()
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY sort_order, id"
	rows, err := qr.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (r SQLRepo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var row taskRow
	err := r.DB.QueryRowContext(ctx, r.q(selectTasks()+` WHERE id=?`), id).Scan(row.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	return row.toTask()
}

func (r SQLRepo) InsertTask(ctx context.Context, t domain.Task) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order),0)+1 FROM tasks`).Scan(&next); err != nil {
			return err
		}
		return r.insertTask(ctx, tx, t, next)
	})
}

func (r SQLRepo) insertTask(ctx context.Context, qr queryer, t domain.Task, order int) error {
	row, err := toRow(t)
	if err != nil {
		return err
	}
	cols := columnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)+1), ",")
	query := `INSERT INTO tasks(` + strings.Join(cols, ",") + `,sort_order) VALUES (` + placeholders + `)`
	args := append(row.values(), order)
	if _, err := qr.ExecContext(ctx, r.q(query), args...); err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	return nil
}

func (r SQLRepo) UpdateTask(ctx context.Context, t domain.Task) error {
	return r.updateTask(ctx, r.DB, t)
}

func (r SQLRepo) updateTask(ctx context.Context, qr queryer, t domain.Task) error {
	row, err := toRow(t)
	if err != nil {
		return err
	}
	values := row.values()
	var (
		sets []string
		args []any
	)
	for i, c := range taskColumns {
		if c.name == "id" {
			continue
		}
		sets = append(sets, c.name+"=?")
		args = append(args, values[i])
	}
	args = append(args, t.ID)
	res, err := qr.ExecContext(ctx, r.q(`UPDATE tasks SET `+strings.Join(sets, ",")+` WHERE id=?`), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r SQLRepo) DeleteTask(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q(`DELETE FROM tasks WHERE id=?`), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM tasks WHERE parent_id=?`), id); err != nil {
			return fmt.Errorf("delete children: %w", err)
		}
		needle, _ := json.Marshal(id)
		rows, err := tx.QueryContext(ctx, r.q(selectTasks()+` WHERE dependencies LIKE ?`), "%"+string(needle)+"%")
		if err != nil {
			return err
		}
		dependents, err := scanTasks(rows)
		if err != nil {
			return err
		}
		for _, t := range dependents {
			if !t.HasDependency(id) {
				continue
			}
			t.Dependencies = pruneDependency(t.Dependencies, id)
			if err := r.updateTask(ctx, tx, t); err != nil {
				return fmt.Errorf("prune dependency of %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (r SQLRepo) ReplaceTasks(ctx context.Context, tasks []domain.Task) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
			return err
		}
		for i, t := range tasks {
			if err := r.insertTask(ctx, tx, t, i+1); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r SQLRepo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,description,color FROM projects ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Color); err != nil {
			return nil, err
		}
		p.ID = wireProjectID(p.ID)
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r SQLRepo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := r.DB.QueryRowContext(ctx, r.q(`SELECT id,name,description,color FROM projects WHERE id=?`), storageProjectID(id)).
		Scan(&p.ID, &p.Name, &p.Description, &p.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	p.ID = wireProjectID(p.ID)
	return p, err
}

func (r SQLRepo) InsertProject(ctx context.Context, p domain.Project) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order),0)+1 FROM projects`).Scan(&next); err != nil {
			return err
		}
		return r.insertProject(ctx, tx, p, next)
	})
}

func (r SQLRepo) insertProject(ctx context.Context, qr queryer, p domain.Project, order int) error {
	_, err := qr.ExecContext(ctx, r.q(`INSERT INTO projects(id,sort_order,name,description,color) VALUES (?,?,?,?,?)`),
		storageProjectID(p.ID), order, p.Name, p.Description, p.Color)
	return err
}

func (r SQLRepo) UpdateProject(ctx context.Context, p domain.Project) error {
	res, err := r.DB.ExecContext(ctx, r.q(`UPDATE projects SET name=?, description=?, color=? WHERE id=?`),
		p.Name, p.Description, p.Color, storageProjectID(p.ID))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r SQLRepo) DeleteProject(ctx context.Context, id string) error {
	if storageProjectID(id) == StorageDefaultProjectID {
		return ErrDefaultProject
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q(`DELETE FROM projects WHERE id=?`), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx, r.q(`UPDATE tasks SET project_id=? WHERE project_id=?`), StorageDefaultProjectID, id)
		return err
	})
}

func (r SQLRepo) ReplaceProjects(ctx context.Context, projects []domain.Project) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
			return err
		}
		for i, p := range projects {
			if err := r.insertProject(ctx, tx, p, i+1); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r SQLRepo) ListLabels(ctx context.Context) ([]domain.Label, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,color FROM labels ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Label{}
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r SQLRepo) InsertLabel(ctx context.Context, l domain.Label) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order),0)+1 FROM labels`).Scan(&next); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, r.q(`INSERT INTO labels(id,sort_order,name,color) VALUES (?,?,?,?)`), l.ID, next, l.Name, l.Color)
		return err
	})
}

func (r SQLRepo) ReplaceLabels(ctx context.Context, labels []domain.Label) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM labels`); err != nil {
			return err
		}
		for i, l := range labels {
			if _, err := tx.ExecContext(ctx, r.q(`INSERT INTO labels(id,sort_order,name,color) VALUES (?,?,?,?)`), l.ID, i+1, l.Name, l.Color); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r SQLRepo) getState(ctx context.Context, key string, out any) (bool, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, r.q(`SELECT value FROM kv_state WHERE key=?`), key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r SQLRepo) setState(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.q(`INSERT INTO kv_state(key,value) VALUES (?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value`), key, string(payload))
	return err
}

func (r SQLRepo) GetSettings(ctx context.Context) (domain.Settings, error) {
	s := domain.DefaultSettings()
	if _, err := r.getState(ctx, stateSettings, &s); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

func (r SQLRepo) SaveSettings(ctx context.Context, s domain.Settings) error {
	return r.setState(ctx, stateSettings, s)
}

func (r SQLRepo) LoadHistory(ctx context.Context) (history.Stacks, error) {
	var s history.Stacks
	_, err := r.getState(ctx, stateHistory, &s)
	return s, err
}

func (r SQLRepo) SaveHistory(ctx context.Context, s history.Stacks) error {
	return r.setState(ctx, stateHistory, s)
}

func (r SQLRepo) AppendActivity(ctx context.Context, e domain.ActivityEntry, maxEntries int) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal activity details: %w", err)
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq),0)+1 FROM activity_log`).Scan(&seq); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.q(`INSERT INTO activity_log(id,seq,action,task_id,task_name,details,ts) VALUES (?,?,?,?,?,?,?)`),
			e.ID, seq, e.Action, e.TaskID, e.TaskName, string(details), e.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
		if maxEntries > 0 {
			if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM activity_log WHERE seq<=?`), seq-int64(maxEntries)); err != nil {
				return fmt.Errorf("trim activity: %w", err)
			}
		}
		return nil
	})
}

func (r SQLRepo) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	query := `SELECT id,action,task_id,task_name,details,ts FROM activity_log ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ActivityEntry{}
	for rows.Next() {
		var (
			e       domain.ActivityEntry
			details string
			ts      string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.TaskID, &e.TaskName, &details, &ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("decode activity details: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse activity ts: %w", err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

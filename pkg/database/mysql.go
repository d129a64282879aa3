package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getmaxun/maxun-sub002/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// ==================== Robots ====================

// CreateRobot creates a new robot
func (db *DB) CreateRobot(ctx context.Context, robot *models.Robot) error {
	query := `
		INSERT INTO robots (id, name, target_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	now := time.Now()
	robot.CreatedAt = now
	robot.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx, query,
		robot.ID,
		robot.Name,
		robot.TargetURL,
		robot.CreatedAt,
		robot.UpdatedAt,
	)

	return err
}

// GetRobot retrieves a robot by ID
func (db *DB) GetRobot(ctx context.Context, id string) (*models.Robot, error) {
	query := `
		SELECT id, name, target_url, created_at, updated_at
		FROM robots
		WHERE id = ?
	`

	var robot models.Robot
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&robot.ID,
		&robot.Name,
		&robot.TargetURL,
		&robot.CreatedAt,
		&robot.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get robot: %w", err)
	}

	return &robot, nil
}

// ListRobots retrieves all robots
func (db *DB) ListRobots(ctx context.Context) ([]models.Robot, error) {
	query := `
		SELECT id, name, target_url, created_at, updated_at
		FROM robots
		ORDER BY created_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list robots: %w", err)
	}
	defer rows.Close()

	var robots []models.Robot
	for rows.Next() {
		var robot models.Robot
		err := rows.Scan(
			&robot.ID,
			&robot.Name,
			&robot.TargetURL,
			&robot.CreatedAt,
			&robot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan robot: %w", err)
		}
		robots = append(robots, robot)
	}

	return robots, nil
}

// UpdateRobot updates a robot's name and target URL
func (db *DB) UpdateRobot(ctx context.Context, robot *models.Robot) error {
	query := `
		UPDATE robots
		SET name = ?, target_url = ?, updated_at = ?
		WHERE id = ?
	`

	robot.UpdatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx, query,
		robot.Name,
		robot.TargetURL,
		robot.UpdatedAt,
		robot.ID,
	)

	return err
}

// DeleteRobot deletes a robot and its steps
func (db *DB) DeleteRobot(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM robot_steps WHERE robot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete steps: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM robots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete robot: %w", err)
	}

	return tx.Commit()
}

// ==================== Robot Steps ====================

// CreateRobotSteps stores the capture steps of a robot. Descriptors and field
// sets are stored as JSON columns; they are replay data, never queried by key.
func (db *DB) CreateRobotSteps(ctx context.Context, robotID string, steps []models.RobotStep) error {
	query := `
		INSERT INTO robot_steps (id, robot_id, sequence_id, type, list, fields, pagination, row_limit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, step := range steps {
		listJSON, _ := json.Marshal(step.List)
		fieldsJSON, _ := json.Marshal(step.Fields)
		paginationJSON, _ := json.Marshal(step.Pagination)

		_, err := stmt.ExecContext(ctx,
			step.ID,
			robotID,
			step.SequenceID,
			step.Type,
			string(listJSON),
			string(fieldsJSON),
			string(paginationJSON),
			step.Limit,
			step.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step: %w", err)
		}
	}

	return tx.Commit()
}

// GetRobotSteps retrieves all steps for a robot in sequence order
func (db *DB) GetRobotSteps(ctx context.Context, robotID string) ([]models.RobotStep, error) {
	query := `
		SELECT id, robot_id, sequence_id, type, list, fields, pagination, row_limit, created_at
		FROM robot_steps
		WHERE robot_id = ?
		ORDER BY sequence_id
	`

	rows, err := db.conn.QueryContext(ctx, query, robotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var steps []models.RobotStep
	for rows.Next() {
		var step models.RobotStep
		var listJSON, fieldsJSON, paginationJSON string

		err := rows.Scan(
			&step.ID,
			&step.RobotID,
			&step.SequenceID,
			&step.Type,
			&listJSON,
			&fieldsJSON,
			&paginationJSON,
			&step.Limit,
			&step.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		json.Unmarshal([]byte(listJSON), &step.List)
		json.Unmarshal([]byte(fieldsJSON), &step.Fields)
		json.Unmarshal([]byte(paginationJSON), &step.Pagination)

		steps = append(steps, step)
	}

	return steps, nil
}

// ==================== Extraction Runs ====================

// CreateExtractionRun creates a new extraction run
func (db *DB) CreateExtractionRun(ctx context.Context, run *models.ExtractionRun) error {
	query := `
		INSERT INTO extraction_runs (id, robot_id, temporal_run_id, temporal_workflow_id, status)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.RobotID,
		run.TemporalRunID,
		run.TemporalWorkflowID,
		run.Status,
	)

	return err
}

// GetExtractionRun retrieves an extraction run by ID
func (db *DB) GetExtractionRun(ctx context.Context, id string) (*models.ExtractionRun, error) {
	query := `
		SELECT id, robot_id, temporal_run_id, temporal_workflow_id, status,
		       row_count, pages_visited, started_at, completed_at, error_message
		FROM extraction_runs
		WHERE id = ?
	`

	var run models.ExtractionRun
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.RobotID,
		&run.TemporalRunID,
		&run.TemporalWorkflowID,
		&run.Status,
		&run.RowCount,
		&run.PagesVisited,
		&run.StartedAt,
		&run.CompletedAt,
		&run.ErrorMessage,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListExtractionRuns retrieves runs for a robot
func (db *DB) ListExtractionRuns(ctx context.Context, robotID string) ([]models.ExtractionRun, error) {
	query := `
		SELECT id, robot_id, temporal_run_id, temporal_workflow_id, status,
		       row_count, pages_visited, started_at, completed_at, error_message
		FROM extraction_runs
		WHERE robot_id = ?
		ORDER BY started_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, robotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ExtractionRun
	for rows.Next() {
		var run models.ExtractionRun
		err := rows.Scan(
			&run.ID,
			&run.RobotID,
			&run.TemporalRunID,
			&run.TemporalWorkflowID,
			&run.Status,
			&run.RowCount,
			&run.PagesVisited,
			&run.StartedAt,
			&run.CompletedAt,
			&run.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// UpdateExtractionRunStatus updates the status of an extraction run
func (db *DB) UpdateExtractionRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg string) error {
	query := `
		UPDATE extraction_runs
		SET status = ?, error_message = ?,
		    started_at = CASE WHEN ? = 'running' AND started_at IS NULL THEN NOW() ELSE started_at END,
		    completed_at = CASE WHEN ? IN ('success', 'failed', 'canceled') THEN NOW() ELSE completed_at END
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query, status, errorMsg, status, status, id)
	return err
}

// UpdateExtractionRunCounts records the row and page totals of a finished run
func (db *DB) UpdateExtractionRunCounts(ctx context.Context, id string, rowCount, pagesVisited int) error {
	query := `
		UPDATE extraction_runs
		SET row_count = ?, pages_visited = ?
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query, rowCount, pagesVisited, id)
	return err
}

// ==================== Extracted Rows ====================

// CreateExtractedRows stores the rows produced by a run
func (db *DB) CreateExtractedRows(ctx context.Context, runID string, rows []models.ExtractedRow) error {
	query := `
		INSERT INTO extracted_rows (id, run_id, ordinal, page_url, row_values, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		valuesJSON, _ := json.Marshal(row.Values)

		_, err := stmt.ExecContext(ctx,
			row.ID,
			runID,
			row.Ordinal,
			row.PageURL,
			string(valuesJSON),
			row.ScrapedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return tx.Commit()
}

// GetExtractedRows retrieves the rows of a run in extraction order
func (db *DB) GetExtractedRows(ctx context.Context, runID string) ([]models.ExtractedRow, error) {
	query := `
		SELECT id, run_id, ordinal, page_url, row_values, scraped_at
		FROM extracted_rows
		WHERE run_id = ?
		ORDER BY ordinal
	`

	rows, err := db.conn.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	defer rows.Close()

	var out []models.ExtractedRow
	for rows.Next() {
		var row models.ExtractedRow
		var valuesJSON string

		err := rows.Scan(
			&row.ID,
			&row.RunID,
			&row.Ordinal,
			&row.PageURL,
			&valuesJSON,
			&row.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(valuesJSON), &row.Values)

		out = append(out, row)
	}

	return out, nil
}

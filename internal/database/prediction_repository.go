package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/itzcole03/A1forBolt-sub001/internal/models"
)

// ErrPredictionNotFound is returned when a prediction id has no stored row
var ErrPredictionNotFound = errors.New("prediction not found")

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PredictionRepository persists predictions, settled outcomes and alerts.
// The full prediction document is stored as JSONB next to the columns used
// for filtering, so retrieval round-trips every nested field.
type PredictionRepository struct {
	pool DatabasePool
}

// NewPredictionRepository creates a repository backed by the given pool
func NewPredictionRepository(pool DatabasePool) *PredictionRepository {
	return &PredictionRepository{
		pool: pool,
	}
}

// SavePrediction inserts one generated prediction
func (r *PredictionRepository) SavePrediction(ctx context.Context, prediction *models.FinalPrediction) error {
	payload, err := json.Marshal(prediction)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}

	query := `
		INSERT INTO predictions (id, entity_id, risk_profile, risk_level, final_score, confidence, is_sure_odds, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		prediction.ID,
		prediction.EntityID,
		prediction.RiskProfile,
		string(prediction.RiskLevel),
		prediction.FinalScore,
		prediction.Confidence,
		prediction.IsSureOdds,
		payload,
		prediction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}

	return nil
}

// GetPrediction loads one prediction by id
func (r *PredictionRepository) GetPrediction(ctx context.Context, id string) (*models.FinalPrediction, error) {
	query := `
		SELECT payload
		FROM predictions
		WHERE id = $1
	`

	var payload []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	var prediction models.FinalPrediction
	if err := json.Unmarshal(payload, &prediction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prediction: %w", err)
	}

	return &prediction, nil
}

// ListRecentPredictions returns the newest predictions, newest first
func (r *PredictionRepository) ListRecentPredictions(ctx context.Context, limit int) ([]models.FinalPrediction, error) {
	query := `
		SELECT payload
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var predictions []models.FinalPrediction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", err)
		}
		var prediction models.FinalPrediction
		if err := json.Unmarshal(payload, &prediction); err != nil {
			return nil, fmt.Errorf("failed to unmarshal prediction row: %w", err)
		}
		predictions = append(predictions, prediction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return predictions, nil
}

// SaveOutcome inserts one settled outcome
func (r *PredictionRepository) SaveOutcome(ctx context.Context, outcome *models.Outcome) error {
	query := `
		INSERT INTO outcomes (id, model_name, stake, payout, odds, profit_loss, won, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		outcome.ID,
		outcome.ModelName,
		outcome.Stake,
		outcome.Payout,
		outcome.Odds,
		outcome.ProfitLoss,
		outcome.Won,
		outcome.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}

	return nil
}

// SaveAlert inserts one raised alert for audit
func (r *PredictionRepository) SaveAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, model_name, metric, value, threshold, severity, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.ModelName,
		alert.Metric,
		alert.Value,
		alert.Threshold,
		string(alert.Severity),
		alert.Message,
		alert.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}

	return nil
}

// ListAlerts returns stored alerts for one model, newest first. An empty
// model name returns alerts across all models.
func (r *PredictionRepository) ListAlerts(ctx context.Context, modelName string, limit int) ([]models.Alert, error) {
	query := `
		SELECT id, model_name, metric, value, threshold, severity, message, created_at
		FROM alerts
		WHERE ($1 = '' OR model_name = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, modelName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		var severity string
		err := rows.Scan(
			&alert.ID,
			&alert.ModelName,
			&alert.Metric,
			&alert.Value,
			&alert.Threshold,
			&severity,
			&alert.Message,
			&alert.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alert.Severity = models.AlertSeverity(severity)
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

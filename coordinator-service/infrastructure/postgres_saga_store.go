package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/draftea/saga-coordinator/shared/models"
	"github.com/draftea/saga-coordinator/shared/saga"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgresSagaStore implements saga.Store using PostgreSQL
type PostgresSagaStore struct {
	db *sqlx.DB
}

// NewPostgresSagaStore creates a new PostgresSagaStore
func NewPostgresSagaStore(db *sqlx.DB) *PostgresSagaStore {
	return &PostgresSagaStore{db: db}
}

// postgresSagaInstance represents a saga instance in the database
type postgresSagaInstance struct {
	ID             string         `db:"id"`
	DefinitionName string         `db:"definition_name"`
	Status         string         `db:"status"`
	Data           []byte         `db:"data"`
	CompletedSteps pq.StringArray `db:"completed_steps"`
	FailedStep     *string        `db:"failed_step"`
	Error          *string        `db:"error"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// SaveInstance upserts the current state of a saga instance
func (s *PostgresSagaStore) SaveInstance(ctx context.Context, snapshot *saga.Snapshot) error {
	query := `
		INSERT INTO saga_instances (
			id, definition_name, status, data, completed_steps,
			failed_step, error, created_at, updated_at
		) VALUES (
			:id, :definition_name, :status, :data, :completed_steps,
			:failed_step, :error, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			completed_steps = EXCLUDED.completed_steps,
			failed_step = EXCLUDED.failed_step,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at`

	pgInstance, err := s.toPostgres(snapshot)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, query, pgInstance)
	if err != nil {
		return errors.Wrap(err, "failed to save saga instance")
	}

	return nil
}

// LoadIncomplete loads all saga instances that have not reached a terminal status
func (s *PostgresSagaStore) LoadIncomplete(ctx context.Context) ([]*saga.Snapshot, error) {
	query := `
		SELECT id, definition_name, status, data, completed_steps,
			   failed_step, error, created_at, updated_at
		FROM saga_instances
		WHERE status IN ($1, $2)
		ORDER BY created_at ASC`

	var pgInstances []postgresSagaInstance
	err := s.db.SelectContext(ctx, &pgInstances, query, string(saga.StatusRunning), string(saga.StatusCompensating))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load incomplete saga instances")
	}

	snapshots := make([]*saga.Snapshot, len(pgInstances))
	for i, pgInstance := range pgInstances {
		snapshot, err := s.toSnapshot(&pgInstance)
		if err != nil {
			return nil, err
		}
		snapshots[i] = snapshot
	}

	return snapshots, nil
}

// toPostgres converts a saga snapshot to the database model
func (s *PostgresSagaStore) toPostgres(snapshot *saga.Snapshot) (*postgresSagaInstance, error) {
	data, err := json.Marshal(snapshot.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal saga data")
	}

	var failedStep *string
	if snapshot.FailedStep != "" {
		failedStep = &snapshot.FailedStep
	}

	var errMsg *string
	if snapshot.Error != "" {
		errMsg = &snapshot.Error
	}

	return &postgresSagaInstance{
		ID:             snapshot.ID.String(),
		DefinitionName: snapshot.DefinitionName,
		Status:         string(snapshot.Status),
		Data:           data,
		CompletedSteps: pq.StringArray(snapshot.CompletedSteps),
		FailedStep:     failedStep,
		Error:          errMsg,
		CreatedAt:      snapshot.Timestamps.CreatedAt,
		UpdatedAt:      snapshot.Timestamps.UpdatedAt,
	}, nil
}

// toSnapshot converts the database model back to a saga snapshot
func (s *PostgresSagaStore) toSnapshot(pgInstance *postgresSagaInstance) (*saga.Snapshot, error) {
	id, err := models.NewID(pgInstance.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid saga instance ID")
	}

	var data saga.Data
	if len(pgInstance.Data) > 0 {
		if err := json.Unmarshal(pgInstance.Data, &data); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal saga data")
		}
	}

	snapshot := &saga.Snapshot{
		ID:             id,
		DefinitionName: pgInstance.DefinitionName,
		Status:         saga.Status(pgInstance.Status),
		Data:           data,
		CompletedSteps: []string(pgInstance.CompletedSteps),
		Timestamps: models.Timestamps{
			CreatedAt: pgInstance.CreatedAt,
			UpdatedAt: pgInstance.UpdatedAt,
		},
	}

	if pgInstance.FailedStep != nil {
		snapshot.FailedStep = *pgInstance.FailedStep
	}
	if pgInstance.Error != nil {
		snapshot.Error = *pgInstance.Error
	}

	return snapshot, nil
}

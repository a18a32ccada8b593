package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"retitle/internal/state"
)

var (
	ErrNotFound      = state.ErrNotFound
	ErrAlreadyExists = errors.New("job already exists")
)

type Repository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Save(ctx context.Context, job *Job) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Job, error)
}

// StoreRepo keeps jobs as JSON documents in a state.Store. Save is a full
// replace; callers merge with the current record first.
type StoreRepo struct {
	store state.Store
}

func NewStoreRepo(store state.Store) *StoreRepo {
	return &StoreRepo{store: store}
}

func (r *StoreRepo) Create(ctx context.Context, job *Job) error {
	if job.ID == "" {
		return errors.New("job id is required")
	}
	_, err := r.store.Get(ctx, Namespace, job.ID)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, job.ID)
	}
	if !errors.Is(err, state.ErrNotFound) {
		return err
	}
	return r.Save(ctx, job)
}

func (r *StoreRepo) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := r.store.Get(ctx, Namespace, id)
	if err != nil {
		return nil, err
	}
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &j, nil
}

func (r *StoreRepo) Save(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return r.store.Set(ctx, Namespace, job.ID, raw)
}

func (r *StoreRepo) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, Namespace, id)
}

func (r *StoreRepo) List(ctx context.Context) ([]Job, error) {
	raws, err := r.store.List(ctx, Namespace)
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var j Job
		if err := json.Unmarshal(raw, &j); err != nil {
			slog.WarnContext(ctx, "skipping undecodable job record", "error", err)
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

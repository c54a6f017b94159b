package worker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"servicehub/internal/database"
)

type RegisterInput struct {
	ID          int64  `json:"id" binding:"required,gt=0"`
	Name        string `json:"name" binding:"required,max=255"`
	ServiceName string `json:"service_name" binding:"required,max=255"`
}

type Service struct {
	repo   *Repository
	logger *zap.Logger
}

func NewService(repo *Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Register creates the worker record for an identity-layer user. Registering
// an existing id returns the stored worker unchanged.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Worker, error) {
	name := strings.TrimSpace(in.Name)
	serviceName := strings.TrimSpace(in.ServiceName)
	if in.ID <= 0 || name == "" || serviceName == "" {
		return nil, ErrValidation
	}

	w := &Worker{ID: in.ID, Name: name, ServiceName: serviceName}
	created, err := s.repo.CreateIfAbsent(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("create worker: %w", err)
	}
	if created {
		s.logger.Info("Worker registered", zap.Int64("worker_id", w.ID))
	}

	return s.Get(ctx, in.ID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Worker, error) {
	var w *Worker
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		w, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) List(ctx context.Context) ([]Worker, error) {
	return s.repo.List(ctx)
}

package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/config"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/modelsdk"
)

// ModelService is the part of the model service client used by the workflow.
type ModelService interface {
	OpenWorkingCopy(ctx context.Context, id string) (modelsdk.Model, error)
	CreateOnlineWorkingCopy(ctx context.Context, projectID string, rev models.Revision) (*models.WorkingCopy, error)
	CreateAndOpenWorkingCopy(ctx context.Context, params modelsdk.CreateParams) (modelsdk.Model, error)
}

// SessionService obtains working copy handles.
type SessionService struct {
	service ModelService
	project config.ProjectConfig
	logger  *zap.Logger
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(service ModelService, project config.ProjectConfig, logger *zap.Logger) *SessionService {
	return &SessionService{
		service: service,
		project: project,
		logger:  logging.OrNop(logger).Named("session"),
	}
}

// Open opens the configured working copy. It is the only path that leads to a rename.
func (s *SessionService) Open(ctx context.Context) (modelsdk.Model, error) {
	model, err := s.service.OpenWorkingCopy(ctx, s.project.WorkingCopy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionOpen, err)
	}
	s.logger.Info("model loaded", zap.String("working_copy", s.project.WorkingCopy))
	return model, nil
}

// CreateOnline creates a working copy of the configured project revision. The copy is not opened;
// its id is meant for a later run.
func (s *SessionService) CreateOnline(ctx context.Context) (*models.WorkingCopy, error) {
	rev := models.Revision{Branch: s.project.Branch, Number: s.project.Revision}
	wc, err := s.service.CreateOnlineWorkingCopy(ctx, s.project.ID, rev)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	s.logger.Info("working copy created",
		zap.String("working_copy", wc.ID),
		zap.String("project", s.project.ID),
		zap.String("branch", branchLabel(s.project.Branch)),
		zap.Int("revision", s.project.Revision))
	return wc, nil
}

// CreateFromTemplate creates and opens a working copy from the local template file, named after
// the project title with a "Local" suffix.
func (s *SessionService) CreateFromTemplate(ctx context.Context) (modelsdk.Model, error) {
	params := modelsdk.CreateParams{
		Name:     s.project.Title + "Local",
		Template: s.project.TemplateFile,
	}
	model, err := s.service.CreateAndOpenWorkingCopy(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	s.logger.Info("working copy created from template",
		zap.String("working_copy", model.WorkingCopy().ID),
		zap.String("template", s.project.TemplateFile))
	return model, nil
}

func branchLabel(branch string) string {
	if branch == "" {
		return "mainline"
	}
	return branch
}

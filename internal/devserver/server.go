package devserver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/config"
	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/validation"
)

// Server groups the services behind the local model service API.
type Server struct {
	Auth          *AuthService
	Projects      *ProjectService
	WorkingCopies *WorkingCopyService
	Jobs          *JobService
	cfg           config.DevServerConfig
	logger        *zap.Logger
}

// New wires the services on a migrated database.
func New(db *database.DB, cfg config.DevServerConfig, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger).Named("devserver")
	projects := NewProjectService(db, logger)
	workingCopies := NewWorkingCopyService(db, projects, logger)
	return &Server{
		Auth:          NewAuthService(db, cfg.BcryptCost, logger),
		Projects:      projects,
		WorkingCopies: workingCopies,
		Jobs:          NewJobService(db, projects, workingCopies, logger),
		cfg:           cfg,
		logger:        logger,
	}
}

// Seed creates the configured users and projects. It is safe to run on every start.
func (s *Server) Seed() error {
	cfg := s.cfg
	for _, u := range cfg.Users {
		if err := validation.ValidateUsername(u.Username); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		if err := validation.ValidateAPIKey(u.APIKey, validation.DefaultKeyPolicy()); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		if err := s.Auth.EnsureUser(u.Username, u.APIKey); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Username, err)
		}
	}
	for _, p := range cfg.Projects {
		if p.ID == "" || p.Template == "" {
			return fmt.Errorf("seed project %q: id and template are required", p.Name)
		}
		units, err := LoadTemplate(p.Template)
		if err != nil {
			return fmt.Errorf("seed project %q: %w", p.ID, err)
		}
		name := p.Name
		if name == "" {
			name = p.ID
		}
		if err := s.Projects.Seed(p.ID, name, units); err != nil {
			return fmt.Errorf("seed project %q: %w", p.ID, err)
		}
	}
	s.logger.Info("seed complete", zap.Int("users", len(cfg.Users)), zap.Int("projects", len(cfg.Projects)))
	return nil
}

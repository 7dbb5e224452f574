package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/modelsdk"
	"github.com/pandeptwidyaop/classmod/internal/ux"
)

const closeTimeout = 30 * time.Second

// CommitOutcome is what the committer did with a working copy.
type CommitOutcome struct {
	Result *models.CommitResult
	Status models.RunStatus
}

// CommitService commits renamed working copies and closes their sessions.
type CommitService struct {
	printer *ux.Printer
	logger  *zap.Logger
}

// NewCommitService creates a new CommitService instance.
func NewCommitService(printer *ux.Printer, logger *zap.Logger) *CommitService {
	return &CommitService{
		printer: printer,
		logger:  logging.OrNop(logger).Named("committer"),
	}
}

// Finish commits the working copy when changed and not a dry run, then closes the session. The
// session is closed exactly once on every path, including a failed commit.
func (s *CommitService) Finish(ctx context.Context, model modelsdk.Model, changed, dryRun bool, branch string) (*CommitOutcome, error) {
	outcome := &CommitOutcome{Status: models.RunUnchanged}

	var commitErr error
	switch {
	case dryRun:
		outcome.Status = models.RunDryRun
		s.printer.Println("DRY RUN")
	case changed:
		result, err := model.Commit(ctx, branch)
		if err != nil {
			commitErr = fmt.Errorf("%w: %w", ErrCommit, err)
			s.printer.Error("Error")
			s.printer.Error("%v", err)
		} else {
			outcome.Status = models.RunCommitted
			outcome.Result = result
			s.printer.Success("Commit")
			s.printer.Println("Committed revision %s on %s", s.printer.Highlight(fmt.Sprint(result.Revision)), branchLabel(branch))
			s.logger.Info("committed",
				zap.String("working_copy", model.WorkingCopy().ID),
				zap.String("branch", branchLabel(branch)),
				zap.Int("revision", result.Revision))
		}
	default:
		s.logger.Info("no class lists matched; nothing to commit")
	}

	closeErr := s.Close(ctx, model)
	if err := errors.Join(commitErr, closeErr); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// Close ends the session. It runs even when ctx is already cancelled so an interrupted run still
// releases its working copy.
func (s *CommitService) Close(ctx context.Context, model modelsdk.Model) error {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	if err := model.Close(closeCtx); err != nil {
		s.printer.Error("Failed to close connection to Model API. Error: %v", err)
		return fmt.Errorf("%w: %w", ErrClose, err)
	}
	s.printer.Println("Closed connection to Model API successfully.")
	return nil
}

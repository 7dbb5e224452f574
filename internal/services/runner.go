package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/config"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/metrics"
	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/modelsdk"
	"github.com/pandeptwidyaop/classmod/internal/ux"
)

// RunResult summarizes one invocation.
type RunResult struct {
	WorkingCopy  *models.WorkingCopy
	Commit       *models.CommitResult
	Loaded       map[models.UnitKind]int
	Collected    map[models.UnitKind]int
	RunID        string
	Mode         models.RunMode
	Status       models.RunStatus
	Replacements int
}

// Runner wires the workflow services together for a single invocation.
type Runner struct {
	cfg       *config.Config
	sessions  *SessionService
	loader    *LoaderService
	committer *CommitService
	journal   *JournalService
	metrics   *metrics.RunMetrics
	printer   *ux.Printer
	logger    *zap.Logger
	host      string
}

// RunnerDeps are the collaborators of a Runner. Journal may be nil.
type RunnerDeps struct {
	Service ModelService
	Journal *JournalService
	Metrics *metrics.RunMetrics
	Printer *ux.Printer
	Logger  *zap.Logger
	Host    string
}

// NewRunner creates a Runner for cfg.
func NewRunner(cfg *config.Config, deps RunnerDeps) *Runner {
	logger := logging.OrNop(deps.Logger)
	m := deps.Metrics
	if m == nil {
		m = metrics.NewRunMetrics()
	}
	return &Runner{
		cfg:       cfg,
		sessions:  NewSessionService(deps.Service, cfg.Project, logger),
		loader:    NewLoaderService(cfg.Loader, logger),
		committer: NewCommitService(deps.Printer, logger),
		journal:   deps.Journal,
		metrics:   m,
		printer:   deps.Printer,
		logger:    logger,
		host:      deps.Host,
	}
}

// Run executes the path selected by the configuration.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	run := &models.Run{
		ID:            uuid.New().String(),
		Mode:          r.cfg.Mode(),
		WorkingCopyID: r.cfg.Project.WorkingCopy,
		ModuleName:    r.cfg.Rename.ModuleName,
		Target:        r.cfg.Rename.Target,
		Replacement:   r.cfg.Rename.Replacement,
		DryRun:        r.cfg.Rename.DryRun,
		Host:          r.host,
		StartedAt:     started,
	}
	if err := r.journal.StartRun(run); err != nil {
		r.logger.Warn("journal unavailable", zap.Error(err))
	}

	result := &RunResult{
		RunID:     run.ID,
		Mode:      run.Mode,
		Loaded:    make(map[models.UnitKind]int),
		Collected: make(map[models.UnitKind]int),
	}

	var err error
	switch run.Mode {
	case models.ModeCreateOnline:
		err = r.createOnline(ctx, result)
	case models.ModeCreateFromTemplate:
		err = r.createFromTemplate(ctx, result)
	default:
		err = r.rename(ctx, run, result)
	}

	finished := time.Now()
	if err != nil && result.Status == "" {
		result.Status = models.RunFailed
	}
	run.Status = result.Status
	run.Replacements = result.Replacements
	run.FinishedAt = &finished
	if result.WorkingCopy != nil {
		run.WorkingCopyID = result.WorkingCopy.ID
	}
	if result.Commit != nil {
		rev := result.Commit.Revision
		run.Revision = &rev
	}
	if err != nil {
		run.Error = err.Error()
	}
	if jerr := r.journal.FinishRun(run); jerr != nil {
		r.logger.Warn("failed to finish journal run", zap.Error(jerr))
	}
	r.metrics.Finished(run.Mode, result.Status, started, finished)
	if path := r.cfg.Output.MetricsFile; path != "" {
		if merr := r.metrics.WriteTextfile(path); merr != nil {
			r.logger.Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(merr))
		}
	}

	return result, err
}

func (r *Runner) createOnline(ctx context.Context, result *RunResult) error {
	r.printer.Println("No working copy provided. Running the loader")
	wc, err := r.sessions.CreateOnline(ctx)
	if err != nil {
		r.printer.Error("error %v", err)
		return err
	}
	result.WorkingCopy = wc
	result.Status = models.RunCreated
	r.printer.Println("")
	r.printer.Println("Created a working copy. Provide this as WORKING_COPY=%s and run again.", r.printer.Highlight(wc.ID))
	r.printer.Println("")
	r.printer.Println("done")
	return nil
}

func (r *Runner) createFromTemplate(ctx context.Context, result *RunResult) error {
	r.printer.Println("No working copy provided. Running the loader")
	model, err := r.sessions.CreateFromTemplate(ctx)
	if err != nil {
		r.printer.Error("error %v", err)
		return err
	}
	wc := model.WorkingCopy()
	result.WorkingCopy = &wc
	result.Status = models.RunCreated
	r.printer.Println("Opened working copy %s (%s) from %s",
		r.printer.Highlight(wc.ID), wc.Name, r.printer.Accent(r.cfg.Project.TemplateFile))
	r.printer.Println("Provide this as WORKING_COPY=%s and run again.", r.printer.Highlight(wc.ID))
	return r.committer.Close(ctx, model)
}

func (r *Runner) rename(ctx context.Context, run *models.Run, result *RunResult) error {
	model, err := r.sessions.Open(ctx)
	if err != nil {
		r.printer.Error("Error opening model: \n %v", err)
		return err
	}
	wc := model.WorkingCopy()
	result.WorkingCopy = &wc

	mutator := NewMutator(r.cfg.Rename.Target, r.cfg.Rename.Replacement, r.logger)
	mutator.OnReplace(func(rep Replacement) {
		result.Replacements++
		r.metrics.Replaced()
		r.printer.Println("%s %s: %s -> %s",
			r.printer.Accent(rep.Unit.QualifiedName), r.printer.Highlight(rep.Node.NameValue()), rep.Before, rep.After)
		if err := r.journal.RecordMutation(models.Mutation{
			RunID:         run.ID,
			UnitID:        rep.Unit.ID,
			QualifiedName: rep.Unit.QualifiedName,
			ElementID:     rep.Node.ID,
			ElementName:   rep.Node.NameValue(),
			Before:        rep.Before,
			After:         rep.After,
		}); err != nil {
			r.logger.Warn("failed to journal mutation", zap.Error(err))
		}
	})

	nodes, err := r.collect(ctx, model, result)
	if err != nil {
		return errors.Join(err, r.committer.Close(ctx, model))
	}

	changed, err := mutator.Mutate(model, nodes)
	if err != nil {
		return errors.Join(err, r.committer.Close(ctx, model))
	}

	outcome, err := r.committer.Finish(ctx, model, changed, r.cfg.Rename.DryRun, r.cfg.Project.Branch)
	result.Status = outcome.Status
	result.Commit = outcome.Result
	if err != nil && errors.Is(err, ErrCommit) {
		result.Status = models.RunFailed
	}
	return err
}

// collect loads pages, snippets and layouts in that order and returns their selected elements
// in the same order.
func (r *Runner) collect(ctx context.Context, model modelsdk.Model, result *RunResult) ([]CollectedNode, error) {
	var all []CollectedNode
	for _, kind := range models.Kinds {
		units, err := r.loader.LoadAll(ctx, model, kind)
		if err != nil {
			r.printer.Error("%v", err)
			return nil, err
		}
		result.Loaded[kind] = len(units)
		r.metrics.UnitsLoaded(kind, len(units))

		nodes := Collect(units, CollectionFor(kind), r.cfg.Rename.ModuleName)
		result.Collected[kind] = len(nodes)
		r.metrics.NodesCollected(kind, len(nodes))
		r.logger.Debug("elements collected",
			zap.String("kind", kind.Label()),
			zap.String("module", r.cfg.Rename.ModuleName),
			zap.Int("count", len(nodes)))

		all = append(all, nodes...)
	}
	if len(all) == 0 {
		r.logger.Info(fmt.Sprintf("no elements with a class found in module %q", r.cfg.Rename.ModuleName))
	}
	return all, nil
}

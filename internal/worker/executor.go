package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/career-assistant/internal/analysis"
	"github.com/cuongbtq/career-assistant/internal/importer"
	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/internal/worker/domain"
)

// Executor runs one kind of task. report may be called any number of times
// with a JSON-serializable progress snapshot.
type Executor interface {
	Execute(ctx context.Context, t *task.Task, report func(progress any)) (any, error)
}

// ImportRunner is implemented by *importer.Importer
type ImportRunner interface {
	Import(ctx context.Context, userID, query string, tiers []task.Experience, onProgress func(importer.Progress)) (*importer.Result, error)
}

// AnalysisRunner is implemented by *analysis.Analyzer
type AnalysisRunner interface {
	Run(ctx context.Context, userID string, params task.AnalysisParams, onProgress func(analysis.Progress)) (*analysis.Result, error)
}

type importExecutor struct {
	runner ImportRunner
}

func (e *importExecutor) Execute(ctx context.Context, t *task.Task, report func(any)) (any, error) {
	var params task.ImportParams
	if err := decodeParams(t, &params); err != nil {
		return nil, err
	}

	return e.runner.Import(ctx, t.UserID, params.Query, params.Tiers, func(p importer.Progress) {
		report(p)
	})
}

type analysisExecutor struct {
	runner AnalysisRunner
}

func (e *analysisExecutor) Execute(ctx context.Context, t *task.Task, report func(any)) (any, error) {
	var params task.AnalysisParams
	if err := decodeParams(t, &params); err != nil {
		return nil, err
	}

	return e.runner.Run(ctx, t.UserID, params, func(p analysis.Progress) {
		report(p)
	})
}

// decodeParams rejects payloads that could never succeed, so they are not retried
func decodeParams(t *task.Task, params task.Params) error {
	if err := json.Unmarshal(t.Payload, params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

func newExecutors(importRunner ImportRunner, analysisRunner AnalysisRunner) map[task.Kind]Executor {
	executors := make(map[task.Kind]Executor, 2)
	if importRunner != nil {
		executors[task.KindImport] = &importExecutor{runner: importRunner}
	}
	if analysisRunner != nil {
		executors[task.KindAnalysis] = &analysisExecutor{runner: analysisRunner}
	}
	return executors
}

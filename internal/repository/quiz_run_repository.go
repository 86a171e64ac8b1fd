package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/repository/models"
	"quiz-pipeline/internal/util"
)

const (
	insertQuizRunQuery = `INSERT INTO quiz_runs (id, source_name, original_lang, final_summary, created_at)
              VALUES (?, ?, ?, ?, ?)`
	insertQuizRunItemQuery = `INSERT INTO quiz_run_items (run_id, position, source_sentence, answer, answer_type, question)
              VALUES (?, ?, ?, ?, ?, ?)`
	selectQuizRunQuery = `SELECT id, source_name, original_lang, final_summary, created_at
              FROM quiz_runs WHERE id = ?`
	selectRecentQuizRunsQuery = `SELECT id, source_name, original_lang, final_summary, created_at
              FROM quiz_runs ORDER BY created_at DESC, id DESC FETCH FIRST ? ROWS ONLY`
	selectQuizRunItemsQuery = `SELECT run_id, position, source_sentence, answer, answer_type, question
              FROM quiz_run_items WHERE run_id IN (?) ORDER BY run_id, position`
)

// QuizRunDatabaseAdapter stores quiz runs in quiz_runs and quiz_run_items.
// Queries use ? placeholders and are rebound for the connected driver.
type QuizRunDatabaseAdapter struct {
	db *sqlx.DB
	tx *TransactionManager
}

// NewQuizRunDatabaseAdapter creates a new instance of QuizRunDatabaseAdapter
func NewQuizRunDatabaseAdapter(db *sqlx.DB) domain.QuizRunRepository {
	return &QuizRunDatabaseAdapter{db: db, tx: NewTransactionManager(db)}
}

// SaveQuizRun inserts a run and its items in one transaction
func (r *QuizRunDatabaseAdapter) SaveQuizRun(ctx context.Context, run *domain.QuizRun) error {
	if run == nil {
		return errors.New("cannot save nil quiz run")
	}
	if run.ID == "" {
		run.ID = util.NewULID()
	}
	run.CreatedAt = util.TimeOrNow(run.CreatedAt)

	row := convertToModelQuizRun(run)
	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, r.db)
		if _, err := exec.ExecContext(ctx, exec.Rebind(insertQuizRunQuery),
			row.ID, row.SourceName, row.OriginalLang, row.FinalSummary, row.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert quiz run %s: %w", row.ID, err)
		}
		for i, item := range run.Items {
			if _, err := exec.ExecContext(ctx, exec.Rebind(insertQuizRunItemQuery),
				row.ID, i, item.SourceSentence, item.Answer, item.AnswerType, item.Question); err != nil {
				return fmt.Errorf("failed to insert item %d of quiz run %s: %w", i, row.ID, err)
			}
		}
		return nil
	})
}

// GetQuizRunByID returns the run with its items, or nil when it does not exist
func (r *QuizRunDatabaseAdapter) GetQuizRunByID(ctx context.Context, id string) (*domain.QuizRun, error) {
	var row models.QuizRun
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(selectQuizRunQuery), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz run %s: %w", id, err)
	}

	items, err := r.itemsByRun(ctx, []string{row.ID})
	if err != nil {
		return nil, err
	}
	return convertToDomainQuizRun(&row, items[row.ID]), nil
}

// ListRecentQuizRuns returns at most limit runs, newest first
func (r *QuizRunDatabaseAdapter) ListRecentQuizRuns(ctx context.Context, limit int) ([]*domain.QuizRun, error) {
	var rows []models.QuizRun
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(selectRecentQuizRunsQuery), limit); err != nil {
		return nil, fmt.Errorf("failed to list quiz runs: %w", err)
	}
	if len(rows) == 0 {
		return []*domain.QuizRun{}, nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	items, err := r.itemsByRun(ctx, ids)
	if err != nil {
		return nil, err
	}

	runs := make([]*domain.QuizRun, len(rows))
	for i := range rows {
		runs[i] = convertToDomainQuizRun(&rows[i], items[rows[i].ID])
	}
	return runs, nil
}

func (r *QuizRunDatabaseAdapter) itemsByRun(ctx context.Context, runIDs []string) (map[string][]models.QuizRunItem, error) {
	query, args, err := sqlx.In(selectQuizRunItemsQuery, runIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build item query: %w", err)
	}
	var items []models.QuizRunItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get quiz run items: %w", err)
	}
	byRun := make(map[string][]models.QuizRunItem, len(runIDs))
	for _, item := range items {
		byRun[item.RunID] = append(byRun[item.RunID], item)
	}
	return byRun, nil
}

// Helper functions for converting between domain and model types
func convertToModelQuizRun(run *domain.QuizRun) *models.QuizRun {
	return &models.QuizRun{
		ID:           run.ID,
		SourceName:   util.StringToNullString(run.SourceName),
		OriginalLang: run.OriginalLang,
		FinalSummary: run.FinalSummary,
		CreatedAt:    run.CreatedAt,
	}
}

func convertToDomainQuizRun(row *models.QuizRun, items []models.QuizRunItem) *domain.QuizRun {
	run := &domain.QuizRun{
		ID:           row.ID,
		SourceName:   util.NullStringToString(row.SourceName),
		OriginalLang: row.OriginalLang,
		FinalSummary: row.FinalSummary,
		Items:        make([]domain.QuizItem, 0, len(items)),
		CreatedAt:    row.CreatedAt,
	}
	for _, item := range items {
		run.Items = append(run.Items, domain.QuizItem{
			SourceSentence: item.SourceSentence,
			Answer:         item.Answer,
			AnswerType:     item.AnswerType,
			Question:       item.Question,
		})
	}
	return run
}

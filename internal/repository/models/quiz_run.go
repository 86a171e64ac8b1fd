package models

import (
	"database/sql"
	"time"
)

// QuizRun is a row of quiz_runs
type QuizRun struct {
	ID           string         `db:"id"`
	SourceName   sql.NullString `db:"source_name"`
	OriginalLang string         `db:"original_lang"`
	FinalSummary string         `db:"final_summary"`
	CreatedAt    time.Time      `db:"created_at"`
}

// QuizRunItem is a row of quiz_run_items. Position keeps the order in which
// the pipeline accepted the questions.
type QuizRunItem struct {
	RunID          string `db:"run_id"`
	Position       int    `db:"position"`
	SourceSentence string `db:"source_sentence"`
	Answer         string `db:"answer"`
	AnswerType     string `db:"answer_type"`
	Question       string `db:"question"`
}

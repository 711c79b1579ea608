package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/onnwee/quizbot/quiz"
)

// QuestionStore serves the question corpus. Eligibility means no row in
// question_images: questions with images cannot be asked in text chat.
type QuestionStore struct {
	DB *sql.DB
}

func (s *QuestionStore) CountEligible(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions q
		 LEFT JOIN question_images i ON i.question_id = q.id
		 WHERE i.question_id IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count eligible questions: %w", err)
	}
	return n, nil
}

func (s *QuestionStore) QuestionByID(ctx context.Context, id int64) (*quiz.Question, error) {
	var hasImage bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM question_images WHERE question_id = $1)`, id).Scan(&hasImage)
	if err != nil {
		return nil, fmt.Errorf("check question image: %w", err)
	}
	if hasImage {
		return nil, quiz.ErrNotEligible
	}

	q := &quiz.Question{}
	err = s.DB.QueryRowContext(ctx,
		`SELECT id, title, points FROM questions WHERE id = $1`, id).
		Scan(&q.ID, &q.Title, &q.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiz.ErrNoQuestion
	}
	if err != nil {
		return nil, fmt.Errorf("fetch question %d: %w", id, err)
	}
	if err := s.loadAnswers(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionStore) QuestionAtOffset(ctx context.Context, offset int) (*quiz.Question, error) {
	q := &quiz.Question{}
	err := s.DB.QueryRowContext(ctx,
		`SELECT q.id, q.title, q.points FROM questions q
		 LEFT JOIN question_images i ON i.question_id = q.id
		 WHERE i.question_id IS NULL
		 ORDER BY q.id
		 OFFSET $1 LIMIT 1`, offset).
		Scan(&q.ID, &q.Title, &q.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiz.ErrNoQuestion
	}
	if err != nil {
		return nil, fmt.Errorf("fetch question at offset %d: %w", offset, err)
	}
	if err := s.loadAnswers(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionStore) loadAnswers(ctx context.Context, q *quiz.Question) error {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT content FROM answers WHERE question_id = $1 ORDER BY id`, q.ID)
	if err != nil {
		return fmt.Errorf("fetch answers for question %d: %w", q.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return fmt.Errorf("scan answer: %w", err)
		}
		q.AnswerGroups = append(q.AnswerGroups, content)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate answers: %w", err)
	}
	return nil
}

// InsertQuestion adds a question and its answer groups; used by seeding and
// tests.
func InsertQuestion(ctx context.Context, db *sql.DB, title string, points int, groups []string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO questions (title, points) VALUES ($1, $2) RETURNING id`, title, points).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	for _, g := range groups {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO answers (question_id, content) VALUES ($1, $2)`, id, g); err != nil {
			return 0, fmt.Errorf("insert answer: %w", err)
		}
	}
	return id, nil
}

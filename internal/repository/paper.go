package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yourorg/arxivmcp/pkg/metrics"
	"github.com/yourorg/arxivmcp/pkg/model"
)

// Repository errors
var (
	ErrPaperNotFound = errors.New("paper not found")
	ErrTopicNotFound = errors.New("topic not found")
)

// PaperRepository defines the interface for paper data access
type PaperRepository interface {
	// SaveResults upserts papers under a topic and reports how many rows
	// were newly inserted (already-stored papers are left untouched)
	SaveResults(ctx context.Context, topic string, papers []*model.Paper) (int, error)
	// GetByID finds a paper by its short arXiv ID across all topics
	GetByID(ctx context.Context, paperID string) (*model.Paper, error)
	// ListByTopic returns all papers stored under one topic
	ListByTopic(ctx context.Context, topic string) ([]*model.Paper, error)
	// ListTopics returns all topics with their paper counts, ordered by name
	ListTopics(ctx context.Context) ([]model.TopicInfo, error)
}

// sqlitePaperRepository implements PaperRepository for SQLite
type sqlitePaperRepository struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// NewPaperRepository creates a new SQLite-backed paper repository
func NewPaperRepository(db *sql.DB, m *metrics.Metrics) PaperRepository {
	return &sqlitePaperRepository{
		db:      db,
		metrics: m,
	}
}

// SaveResults inserts new papers for a topic inside one transaction.
// Conflicting (topic, paper_id) pairs are ignored so re-running a search
// never rewrites history, mirroring the append-only papers_info semantics.
func (r *sqlitePaperRepository) SaveResults(ctx context.Context, topic string, papers []*model.Paper) (int, error) {
	start := time.Now()
	operation := "save"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.recordError(operation)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO papers (
			topic, paper_id, title, authors, summary, pdf_url,
			published, updated, categories, primary_category,
			entry_id, search_params, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (topic, paper_id) DO NOTHING
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		r.recordError(operation)
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	newPapers := 0
	now := time.Now().UTC()
	for _, p := range papers {
		authors, err := json.Marshal(p.Authors)
		if err != nil {
			r.recordError(operation)
			return 0, fmt.Errorf("failed to encode authors: %w", err)
		}
		categories, err := json.Marshal(p.Categories)
		if err != nil {
			r.recordError(operation)
			return 0, fmt.Errorf("failed to encode categories: %w", err)
		}
		searchParams, err := json.Marshal(p.SearchParams)
		if err != nil {
			r.recordError(operation)
			return 0, fmt.Errorf("failed to encode search params: %w", err)
		}

		result, err := stmt.ExecContext(ctx,
			topic,
			p.PaperID,
			p.Title,
			string(authors),
			p.Summary,
			p.PDFURL,
			p.Published,
			p.Updated,
			string(categories),
			p.PrimaryCategory,
			p.EntryID,
			string(searchParams),
			now,
		)
		if err != nil {
			r.recordError(operation)
			return 0, fmt.Errorf("failed to insert paper %s: %w", p.PaperID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			r.recordError(operation)
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected > 0 {
			newPapers++
		}
	}

	if err := tx.Commit(); err != nil {
		r.recordError(operation)
		return 0, fmt.Errorf("failed to commit papers: %w", err)
	}

	duration := time.Since(start).Seconds()
	r.metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
	r.metrics.DBQueriesTotal.WithLabelValues(operation, "success").Inc()

	return newPapers, nil
}

// GetByID retrieves a paper by its short arXiv ID, searching across all
// topics. The earliest stored copy wins when a paper appears under several
// topics.
func (r *sqlitePaperRepository) GetByID(ctx context.Context, paperID string) (*model.Paper, error) {
	start := time.Now()
	operation := "get"

	query := `
		SELECT id, topic, paper_id, title, authors, summary, pdf_url,
		       published, updated, categories, primary_category,
		       entry_id, search_params, created_at
		FROM papers
		WHERE paper_id = ?
		ORDER BY created_at, id
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, paperID)
	paper, err := scanPaper(row)

	duration := time.Since(start).Seconds()
	r.metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.metrics.DBQueriesTotal.WithLabelValues(operation, "not_found").Inc()
			return nil, ErrPaperNotFound
		}
		r.metrics.DBQueriesTotal.WithLabelValues(operation, "error").Inc()
		r.metrics.DBErrorsTotal.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("failed to query paper: %w", err)
	}

	r.metrics.DBQueriesTotal.WithLabelValues(operation, "success").Inc()
	return paper, nil
}

// ListByTopic retrieves all papers stored under a topic, newest
// publication first
func (r *sqlitePaperRepository) ListByTopic(ctx context.Context, topic string) ([]*model.Paper, error) {
	start := time.Now()
	operation := "list_topic"

	query := `
		SELECT id, topic, paper_id, title, authors, summary, pdf_url,
		       published, updated, categories, primary_category,
		       entry_id, search_params, created_at
		FROM papers
		WHERE topic = ? COLLATE NOCASE
		ORDER BY published DESC, paper_id
	`

	rows, err := r.db.QueryContext(ctx, query, topic)

	duration := time.Since(start).Seconds()
	r.metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)

	if err != nil {
		r.metrics.DBQueriesTotal.WithLabelValues(operation, "error").Inc()
		r.metrics.DBErrorsTotal.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("failed to query topic papers: %w", err)
	}
	defer rows.Close()

	var papers []*model.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			r.metrics.DBQueriesTotal.WithLabelValues(operation, "error").Inc()
			r.metrics.DBErrorsTotal.WithLabelValues(operation).Inc()
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}

	if err := rows.Err(); err != nil {
		r.metrics.DBQueriesTotal.WithLabelValues(operation, "error").Inc()
		r.metrics.DBErrorsTotal.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if len(papers) == 0 {
		r.metrics.DBQueriesTotal.WithLabelValues(operation, "not_found").Inc()
		return nil, ErrTopicNotFound
	}

	r.metrics.DBQueriesTotal.WithLabelValues(operation, "success").Inc()
	return papers, nil
}

// ListTopics retrieves all topics with paper counts, ordered by name
func (r *sqlitePaperRepository) ListTopics(ctx context.Context) ([]model.TopicInfo, error) {
	start := time.Now()
	operation := "list_topics"

	query := `
		SELECT topic, COUNT(*)
		FROM papers
		GROUP BY topic
		ORDER BY topic COLLATE NOCASE
	`

	rows, err := r.db.QueryContext(ctx, query)

	duration := time.Since(start).Seconds()
	r.metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)

	if err != nil {
		r.metrics.DBQueriesTotal.WithLabelValues(operation, "error").Inc()
		r.metrics.DBErrorsTotal.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []model.TopicInfo
	for rows.Next() {
		var info model.TopicInfo
		if err := rows.Scan(&info.Name, &info.PaperCount); err != nil {
			r.metrics.DBQueriesTotal.WithLabelValues(operation, "error").Inc()
			r.metrics.DBErrorsTotal.WithLabelValues(operation).Inc()
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, info)
	}

	if err := rows.Err(); err != nil {
		r.metrics.DBQueriesTotal.WithLabelValues(operation, "error").Inc()
		r.metrics.DBErrorsTotal.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// Return empty slice instead of nil for consistency
	if topics == nil {
		topics = []model.TopicInfo{}
	}

	r.metrics.DBQueriesTotal.WithLabelValues(operation, "success").Inc()
	return topics, nil
}

func (r *sqlitePaperRepository) recordError(operation string) {
	r.metrics.DBQueriesTotal.WithLabelValues(operation, "error").Inc()
	r.metrics.DBErrorsTotal.WithLabelValues(operation).Inc()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanPaper reads one papers row, decoding the JSON-encoded columns
func scanPaper(s scanner) (*model.Paper, error) {
	var p model.Paper
	var authors, categories, searchParams string

	err := s.Scan(
		&p.ID,
		&p.Topic,
		&p.PaperID,
		&p.Title,
		&authors,
		&p.Summary,
		&p.PDFURL,
		&p.Published,
		&p.Updated,
		&categories,
		&p.PrimaryCategory,
		&p.EntryID,
		&searchParams,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return nil, fmt.Errorf("failed to decode authors: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	if err := json.Unmarshal([]byte(searchParams), &p.SearchParams); err != nil {
		return nil, fmt.Errorf("failed to decode search params: %w", err)
	}

	return &p, nil
}

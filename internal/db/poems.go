package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stanza/internal/models"
)

type PoemRepository struct {
	db *DB
}

func NewPoemRepository(db *DB) *PoemRepository {
	return &PoemRepository{db: db}
}

func (r *PoemRepository) Create(ctx context.Context, poem *models.Poem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO poems (title, author, text) VALUES (?, ?, ?)`,
		poem.Title, poem.Author, poem.Text,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("creating poem: %w", err)
	}
	return nil
}

func (r *PoemRepository) FindByTitle(ctx context.Context, title string) (*models.Poem, error) {
	var p models.Poem
	err := r.db.QueryRowContext(ctx,
		`SELECT title, author, text FROM poems WHERE title = ?`, title,
	).Scan(&p.Title, &p.Author, &p.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying poem: %w", err)
	}

	p.Normalize()
	return &p, nil
}

func (r *PoemRepository) FindAll(ctx context.Context) ([]*models.Poem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT title, author, text FROM poems ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("querying poems: %w", err)
	}
	defer rows.Close()

	var poems []*models.Poem
	for rows.Next() {
		var p models.Poem
		if err := rows.Scan(&p.Title, &p.Author, &p.Text); err != nil {
			return nil, fmt.Errorf("scanning poem: %w", err)
		}
		p.Normalize()
		poems = append(poems, &p)
	}

	return poems, rows.Err()
}

func (r *PoemRepository) Exists(ctx context.Context, title string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM poems WHERE title = ?`, title,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking poem existence: %w", err)
	}
	return count > 0, nil
}

// Update rewrites the poem stored under originalTitle, renaming it when
// the new title differs. Rename collisions surface as ErrDuplicate.
func (r *PoemRepository) Update(ctx context.Context, originalTitle string, poem *models.Poem) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE poems SET title = ?, author = ?, text = ? WHERE title = ?`,
		poem.Title, poem.Author, poem.Text, originalTitle,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("updating poem: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *PoemRepository) Delete(ctx context.Context, title string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM poems WHERE title = ?`, title)
	if err != nil {
		return fmt.Errorf("deleting poem: %w", err)
	}
	return checkRowsAffected(result)
}

package datastore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/calbec/lessonmarket/internal/model"
)

// LessonStore is the read path over the lessons table. Lesson creation
// happens elsewhere; this service never writes lessons.
type LessonStore struct {
	client *Client
}

func NewLessonStore(client *Client) *LessonStore {
	return &LessonStore{client: client}
}

// GetByID returns the lesson with the given id, or nil if none exists.
func (s *LessonStore) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", eq(id))
	query.Set("limit", "1")

	var rows []model.Lesson
	if err := s.client.selectRows(ctx, "lessons", query, &rows); err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// List returns all lessons, newest first.
func (s *LessonStore) List(ctx context.Context) ([]model.Lesson, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc")

	var rows []model.Lesson
	if err := s.client.selectRows(ctx, "lessons", query, &rows); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return rows, nil
}

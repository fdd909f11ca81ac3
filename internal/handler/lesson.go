package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calbec/lessonmarket/internal/model"
)

type lessonReader interface {
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	List(ctx context.Context) ([]model.Lesson, error)
}

type LessonHandler struct {
	lessons lessonReader
	logger  *slog.Logger
}

func NewLessonHandler(lessons lessonReader, logger *slog.Logger) *LessonHandler {
	return &LessonHandler{lessons: lessons, logger: logger}
}

// List returns all lessons, newest first.
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.lessons.List(r.Context())
	if err != nil {
		h.logger.Error("list lessons", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load lessons")
		return
	}
	if lessons == nil {
		lessons = []model.Lesson{}
	}
	writeJSON(w, http.StatusOK, lessons)
}

// Get returns one lesson by id.
func (h *LessonHandler) Get(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.lessons.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("load lesson", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load lesson")
		return
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "Lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

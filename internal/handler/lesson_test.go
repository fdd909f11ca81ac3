package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calbec/lessonmarket/internal/model"
)

type fakeLessons struct {
	lessons []model.Lesson
	lesson  *model.Lesson
	err     error
}

func (f *fakeLessons) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	return f.lesson, f.err
}

func (f *fakeLessons) List(ctx context.Context) ([]model.Lesson, error) {
	return f.lessons, f.err
}

type fakePurchases struct {
	purchases []model.Purchase
	err       error
	gotUserID string
}

func (f *fakePurchases) ListByUser(ctx context.Context, userID string) ([]model.Purchase, error) {
	f.gotUserID = userID
	return f.purchases, f.err
}

func TestListLessons(t *testing.T) {
	h := NewLessonHandler(&fakeLessons{lessons: []model.Lesson{
		{ID: "lesson-1", Title: "Intro to Watercolor", Price: 29.99},
	}}, testLogger())

	req := httptest.NewRequest("GET", "/api/lessons", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Intro to Watercolor") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListLessonsEmptyIsArray(t *testing.T) {
	h := NewLessonHandler(&fakeLessons{}, testLogger())

	req := httptest.NewRequest("GET", "/api/lessons", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestGetLessonNotFound(t *testing.T) {
	h := NewLessonHandler(&fakeLessons{}, testLogger())

	req := httptest.NewRequest("GET", "/api/lessons/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetLesson(t *testing.T) {
	h := NewLessonHandler(&fakeLessons{lesson: &model.Lesson{ID: "lesson-1", Title: "Intro to Watercolor"}}, testLogger())

	req := httptest.NewRequest("GET", "/api/lessons/lesson-1", nil)
	req.SetPathValue("id", "lesson-1")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "lesson-1") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListPurchasesRequiresSession(t *testing.T) {
	h := NewPurchaseHandler(&fakePurchases{}, &fakeSessions{}, testLogger())

	req := httptest.NewRequest("GET", "/api/purchases", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestListPurchases(t *testing.T) {
	purchases := &fakePurchases{purchases: []model.Purchase{
		{LessonID: "lesson-1", UserID: "user-1", Amount: 29.99},
	}}
	h := NewPurchaseHandler(purchases, &fakeSessions{session: testSession()}, testLogger())

	req := httptest.NewRequest("GET", "/api/purchases", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if purchases.gotUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", purchases.gotUserID)
	}
	if !strings.Contains(rec.Body.String(), "lesson-1") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListPurchasesDatastoreError(t *testing.T) {
	purchases := &fakePurchases{err: errors.New("datastore down")}
	h := NewPurchaseHandler(purchases, &fakeSessions{session: testSession()}, testLogger())

	req := httptest.NewRequest("GET", "/api/purchases", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

package datastore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calbec/lessonmarket/internal/model"
)

var profileFixture = model.Profile{
	ID:       "u1",
	Email:    "alice@example.com",
	FullName: "Alice",
}

func TestPurchaseInsert(t *testing.T) {
	var gotRow map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/purchases" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotRow)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	store := NewPurchaseStore(NewClient(server.URL, "data-key"))
	err := store.Insert(context.Background(), &model.Purchase{
		LessonID:        "L1",
		UserID:          "U1",
		Amount:          29.99,
		StripeSessionID: "cs_test_1",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if gotRow["lesson_id"] != "L1" || gotRow["user_id"] != "U1" {
		t.Errorf("row = %v", gotRow)
	}
	if gotRow["amount"] != 29.99 {
		t.Errorf("amount = %v, want 29.99", gotRow["amount"])
	}
	if gotRow["created_at"] == nil {
		t.Error("insert should stamp created_at")
	}
}

func TestPurchaseListByUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_id"); got != "eq.U1" {
			t.Errorf("user_id filter = %q", got)
		}
		if got := r.URL.Query().Get("order"); got != "created_at.desc" {
			t.Errorf("order = %q", got)
		}
		w.Write([]byte(`[
			{"lesson_id": "L2", "user_id": "U1", "amount": 9.5, "stripe_session_id": "cs_2"},
			{"lesson_id": "L1", "user_id": "U1", "amount": 29.99, "stripe_session_id": "cs_1"}
		]`))
	}))
	defer server.Close()

	store := NewPurchaseStore(NewClient(server.URL, "data-key"))
	rows, err := store.ListByUser(context.Background(), "U1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].LessonID != "L2" || rows[1].Amount != 29.99 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestLessonGetByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/lessons" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`[{"id": "L1", "title": "Intro to Watercolor", "price": 29.99, "creator_id": "c1"}]`))
	}))
	defer server.Close()

	store := NewLessonStore(NewClient(server.URL, "data-key"))
	lesson, err := store.GetByID(context.Background(), "L1")
	if err != nil {
		t.Fatalf("get lesson: %v", err)
	}
	if lesson == nil || lesson.Price != 29.99 || lesson.CreatorID != "c1" {
		t.Fatalf("lesson = %+v", lesson)
	}
}

func TestLessonGetByIDNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	store := NewLessonStore(NewClient(server.URL, "data-key"))
	lesson, err := store.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get lesson: %v", err)
	}
	if lesson != nil {
		t.Errorf("expected nil, got %+v", lesson)
	}
}

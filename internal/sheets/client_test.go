package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wedding-checkin/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{ReadURL: srv.URL + "/exec", Timeout: time.Second}, srv.Client(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.URL.Query().Get("email"); got != "alice@example.com" {
			t.Errorf("email param = %q", got)
		}
		if len(r.URL.Query()) != 1 {
			t.Errorf("expected exactly one query parameter, got %v", r.URL.Query())
		}
		io.WriteString(w, `{"status":"success","data":[
			{"Email":"alice@example.com","Name":"Alice","UniqueId":"A1","CheckIn":""},
			{"Email":"alice@example.com","Name":"Bob","UniqueId":"A2","CheckIn":"Y","Table No":"3"}
		]}`)
	})

	got, err := c.Search(context.Background(), models.ByEmail, "alice@example.com")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].UniqueID != "A2" || !got[1].CheckedIn() || got[1].TableNo != "3" {
		t.Errorf("second attendee = %+v", got[1])
	}
}

func TestClient_SearchServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"error","message":"Unique ID not found."}`)
	})

	_, err := c.Search(context.Background(), models.ByUniqueID, "nope")
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *ServerError", err)
	}
	if serr.Message != "Unique ID not found." {
		t.Errorf("Message = %q", serr.Message)
	}
}

func TestClient_TransportErrors(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"malformed json", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `<html>`) }},
		{"missing status", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{"data":[]}`) }},
		{"http 500", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"bad data", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{"status":"success","data":{"x":1}}`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.h)
			_, err := c.Search(context.Background(), models.ByUniqueID, "A1")
			if err == nil {
				t.Fatal("expected error")
			}
			var serr *ServerError
			if errors.As(err, &serr) {
				t.Errorf("transport failure reported as server error: %v", err)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClient(Config{ReadURL: srv.URL, Timeout: 50 * time.Millisecond}, srv.Client(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Search(context.Background(), models.ByUniqueID, "A1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestClient_Names(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "ALL" {
			t.Errorf("name param = %q, want ALL", got)
		}
		io.WriteString(w, `{"status":"success","names":["John Doe","Joan Smith"]}`)
	})

	names, err := c.Names(context.Background())
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 2 || names[0] != "John Doe" {
		t.Errorf("names = %v", names)
	}
}

func TestClient_CheckIn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "text/plain;charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
		var req models.CheckInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(req.UniqueIDs) != 2 || req.UniqueIDs[0] != "A1" || req.UniqueIDs[1] != "A2" {
			t.Errorf("uniqueIds = %v", req.UniqueIDs)
		}
		io.WriteString(w, `{"status":"success","message":"2 attendee(s) checked in."}`)
	})

	msg, err := c.CheckIn(context.Background(), []string{"A1", "A2"})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if msg != "2 attendee(s) checked in." {
		t.Errorf("message = %q", msg)
	}
}

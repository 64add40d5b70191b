package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

func TestCountEventsSkipsCommentsAndGarbage(t *testing.T) {
	stream := ":ok\n\n" +
		`data: {"columns":{"Todo":{"id":"Todo","title":"To Do","tasks":[]}},"columnOrder":["Todo"]}` + "\n\n" +
		":keepalive\n\n" +
		"data: not-json\n\n" +
		`data: {"columns":{},"columnOrder":[]}` + "\n\n"
	n, err := countEvents(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 events, got %d", n)
	}
}

func TestCallDecodesAndReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"t1","status":"Todo"}`))
			return
		}
		http.Error(w, "nope", http.StatusConflict)
	}))
	defer srv.Close()

	var task domain.Task
	if err := call(context.Background(), srv.Client(), http.MethodPost, srv.URL, domain.NewTask{Title: "x"}, &task); err != nil {
		t.Fatalf("post: %v", err)
	}
	if task.ID != "t1" {
		t.Fatalf("unexpected task %#v", task)
	}
	err := call(context.Background(), srv.Client(), http.MethodDelete, srv.URL, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "409") {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

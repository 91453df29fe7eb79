package datapush

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPushSendsReport(t *testing.T) {
	var got RunReport
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPusher(srv.URL)
	report := RunReport{
		StartedAt: time.Now(),
		Duration:  "1.2s",
		Rows:      420,
		Metrics:   map[string]float64{"rmse": 3.1},
	}
	if err := p.Push(report); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if got.Rows != 420 || got.Metrics["rmse"] != 3.1 {
		t.Errorf("server received %+v", got)
	}
}

func TestPushEmptyURLIsNoop(t *testing.T) {
	p := NewPusher("")
	if err := p.Push(RunReport{Rows: 1}); err != nil {
		t.Fatalf("Push() with no URL should be a no-op, got %v", err)
	}
}

func TestRetryStopsAfterSuccess(t *testing.T) {
	calls := 0
	err := retry(func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, 5, time.Millisecond)
	if err != nil {
		t.Fatalf("retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	if err := retry(func() error { return errors.New("down") }, 2, time.Millisecond); err == nil {
		t.Fatal("retry() should fail when every attempt fails")
	}
}

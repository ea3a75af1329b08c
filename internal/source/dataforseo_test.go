package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/FranksOps/magpie/internal/suggest"
)

func newDataForSEOServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *DataForSEO) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	d, err := NewDataForSEO(DataForSEOConfig{
		BaseURL:  ts.URL,
		Login:    "user",
		Password: "pass",
		Cursors:  []int{0, 1},
	}, nil)
	if err != nil {
		t.Fatalf("NewDataForSEO: %v", err)
	}
	return ts, d
}

func TestDataForSEO_RequiresCredentials(t *testing.T) {
	if _, err := NewDataForSEO(DataForSEOConfig{}, nil); err == nil {
		t.Error("expected error for missing credentials")
	}
}

func TestDataForSEO_Tasks(t *testing.T) {
	_, d := newDataForSEOServer(t, func(w http.ResponseWriter, r *http.Request) {})

	seedTasks := d.Tasks("エアコン", 0)
	// Two cursors + organic SERP for the seed.
	if len(seedTasks) != 3 {
		t.Errorf("expected 3 seed tasks, got %d", len(seedTasks))
	}

	deepTasks := d.Tasks("エアコン 掃除", 1)
	for _, task := range deepTasks {
		if task.Backend != suggest.BackendGoogleAutocomplete {
			t.Errorf("deep rounds should be autocomplete only, got %s", task.Backend)
		}
	}
	if len(deepTasks) != 2 {
		t.Errorf("expected 2 deep tasks, got %d", len(deepTasks))
	}
}

func TestDataForSEO_FetchAutocomplete(t *testing.T) {
	_, d := newDataForSEOServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
			t.Error("expected basic auth header")
		}
		if !strings.Contains(r.URL.Path, "autocomplete") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var tasks []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&tasks); err != nil || len(tasks) != 1 {
			t.Errorf("expected single-task payload, err=%v", err)
		}
		if tasks[0]["client"] != "chrome" {
			t.Errorf("expected chrome client, got %v", tasks[0]["client"])
		}

		_, _ = w.Write([]byte(`{"tasks":[{"result":[{"items":[
			{"type":"autocomplete","suggestion":"エアコン 掃除"},
			{"type":"autocomplete","suggestion":"エアコン 修理"}
		]}]}]}`))
	})

	res, err := d.Fetch(context.Background(), suggest.Task{
		Keyword: "エアコン",
		Backend: suggest.BackendGoogleAutocomplete,
		Cursor:  1,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := []string{"エアコン 掃除", "エアコン 修理"}
	if !reflect.DeepEqual(res.Suggestions, want) {
		t.Errorf("expected %v, got %v", want, res.Suggestions)
	}
}

func TestDataForSEO_FetchOrganic(t *testing.T) {
	_, d := newDataForSEOServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "organic") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"tasks":[{"result":[{"items":[
			{"type":"related_searches","items":["エアコン カビ"]},
			{"type":"people_also_ask","items":[{"question":"エアコン 掃除 頻度は?"}]}
		]}]}]}`))
	})

	res, err := d.Fetch(context.Background(), suggest.Task{
		Keyword: "エアコン",
		Backend: suggest.BackendGoogleOrganic,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := []string{"エアコン カビ", "エアコン 掃除 頻度は?"}
	if !reflect.DeepEqual(res.Suggestions, want) {
		t.Errorf("expected %v, got %v", want, res.Suggestions)
	}
}

func TestDataForSEO_FetchServerError(t *testing.T) {
	_, d := newDataForSEOServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := d.Fetch(context.Background(), suggest.Task{
		Keyword: "エアコン",
		Backend: suggest.BackendGoogleAutocomplete,
	})

	var fe *suggest.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Backend != suggest.BackendGoogleAutocomplete || fe.Keyword != "エアコン" {
		t.Errorf("FetchError missing context: %+v", fe)
	}
}

func TestDataForSEO_Backfill(t *testing.T) {
	_, d := newDataForSEOServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "related_keywords") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"tasks":[{"result":[{"items":[
			{"type":"keyword_data","keyword_data":{"keyword":"エアコン おすすめ"}}
		]}]}]}`))
	})

	terms, err := d.Backfill(context.Background(), "エアコン", 100)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if want := []string{"エアコン おすすめ"}; !reflect.DeepEqual(terms, want) {
		t.Errorf("expected %v, got %v", want, terms)
	}
}

func TestDataForSEO_CheckAccount(t *testing.T) {
	_, d := newDataForSEOServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status_code":20000,"status_message":"Ok."}`))
	})
	if err := d.CheckAccount(context.Background()); err != nil {
		t.Errorf("CheckAccount: %v", err)
	}
}

func TestDataForSEO_CheckAccountRejected(t *testing.T) {
	_, d := newDataForSEOServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Auth failures come back in the body with HTTP 200.
		_, _ = w.Write([]byte(`{"status_code":40101,"status_message":"Auth error."}`))
	})
	if err := d.CheckAccount(context.Background()); err == nil {
		t.Error("expected account check to fail")
	}
}

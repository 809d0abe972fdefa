package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "timelines.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	doc := json.RawMessage(`{"savedObjectId":"t1","title":"Lateral movement","updated":100,"noteIds":["n1"]}`)
	id, err := s.Put(ctx, doc)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if id != "t1" {
		t.Errorf("id = %q, want t1", id)
	}

	got, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(doc) {
		t.Errorf("got %s, want %s", got, doc)
	}
}

func TestPutReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, json.RawMessage(`{"savedObjectId":"t1","title":"old"}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, json.RawMessage(`{"savedObjectId":"t1","title":"new"}`)); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	recs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Title != "new" {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestPutRejectsInvalidDocuments(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing id", `{"title":"x"}`},
		{"blank id", `{"savedObjectId":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Put(context.Background(), json.RawMessage(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, doc := range []string{
		`{"savedObjectId":"a","updated":10}`,
		`{"savedObjectId":"b","updated":30}`,
		`{"savedObjectId":"c","updated":20}`,
		`{"savedObjectId":"d"}`,
	} {
		if _, err := s.Put(ctx, json.RawMessage(doc)); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.SavedObjectID)
	}
	want := []string{"b", "c", "a", "d"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, json.RawMessage(`{"savedObjectId":"t1"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timelines.db")
	s, err := OpenStore(DriverSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(context.Background(), json.RawMessage(`{"savedObjectId":"t1"}`)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenStore(DriverSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "t1"); err != nil {
		t.Errorf("get after reopen: %v", err)
	}
}

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "nested", "timelines.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open under missing directory: %v", err)
	}
	defer s.Close()

	if _, err := s.Put(context.Background(), json.RawMessage(`{"savedObjectId":"t1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpenSQLiteDirectoryError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := OpenSQLite(filepath.Join(blocker, "timelines.db"))
	if err == nil || !strings.Contains(err.Error(), "creating database directory") {
		t.Errorf("err = %v, want creating database directory error", err)
	}
}

func TestOpenStoreUnsupportedDriver(t *testing.T) {
	if _, err := OpenStore("oracle", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestDialectPlaceholders(t *testing.T) {
	if got := (&SQLiteDialect{}).Placeholder(3); got != "?" {
		t.Errorf("sqlite placeholder = %q", got)
	}
	if got := (&PostgresDialect{}).Placeholder(3); got != "$3" {
		t.Errorf("postgres placeholder = %q", got)
	}
}

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantIDs []string
		wantErr bool
	}{
		{"json object", `{"savedObjectId":"t1","title":"x"}`, []string{"t1"}, false},
		{"json list", `[{"savedObjectId":"t1"},{"savedObjectId":"t2"}]`, []string{"t1", "t2"}, false},
		{"yaml documents", "savedObjectId: t1\ntitle: one\n---\nsavedObjectId: t2\n", []string{"t1", "t2"}, false},
		{"yaml list", "- savedObjectId: t1\n  dateRange:\n    start: 1700000000000\n", []string{"t1"}, false},
		{"empty", "", nil, false},
		{"missing id", "title: orphan\n", nil, true},
		{"broken yaml", "savedObjectId: [\n", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := ParseRecords([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(docs) != len(tt.wantIDs) {
				t.Fatalf("got %d docs, want %d", len(docs), len(tt.wantIDs))
			}
			for i, doc := range docs {
				r, err := parseRecord(doc)
				if err != nil {
					t.Fatal(err)
				}
				if r.SavedObjectID != tt.wantIDs[i] {
					t.Errorf("doc %d id = %q, want %q", i, r.SavedObjectID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestLoadRecordsKeepsNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	data := "savedObjectId: t1\ndateRange:\n  start: 1700000000123\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadRecords(path)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		DateRange struct {
			Start int64 `json:"start"`
		} `json:"dateRange"`
	}
	if err := json.Unmarshal(docs[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.DateRange.Start != 1700000000123 {
		t.Errorf("start = %d", got.DateRange.Start)
	}

	if _, err := LoadRecords(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

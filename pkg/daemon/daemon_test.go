package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modoterra/sightline/pkg/core"
	"github.com/modoterra/sightline/pkg/opentimeline"
	"github.com/modoterra/sightline/pkg/query"
	"github.com/modoterra/sightline/pkg/storage"
	"github.com/modoterra/sightline/pkg/store"
	"github.com/modoterra/sightline/pkg/transport/uds"
)

func newTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := storage.OpenSQLite(filepath.Join(dir, "timelines.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	sock := filepath.Join(dir, "timelined.sock")
	return New(sock, st, NewMetrics(), logger), sock
}

func makeMsg(t *testing.T, req any) uds.Message {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return uds.Message{Data: data}
}

func save(t *testing.T, d *Daemon, doc string) {
	t.Helper()
	_, err := d.handleSaveTimeline(context.Background(), makeMsg(t, uds.SaveTimelineRequest{Timeline: json.RawMessage(doc)}))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
}

func gaugeValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestGetOneTimeline(t *testing.T) {
	d, _ := newTestDaemon(t)
	save(t, d, `{"savedObjectId":"t1","title":"My TL"}`)

	res, err := d.handleGetOneTimeline(context.Background(), makeMsg(t, uds.GetOneTimelineRequest{ID: "t1"}))
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"getOneTimeline":{"savedObjectId":"t1","title":"My TL"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestGetOneTimelineErrors(t *testing.T) {
	d, _ := newTestDaemon(t)

	tests := []struct {
		name string
		msg  uds.Message
		want string
	}{
		{"missing", makeMsg(t, uds.GetOneTimelineRequest{ID: "nope"}), "timeline not found: nope"},
		{"no id", makeMsg(t, uds.GetOneTimelineRequest{}), "id is required"},
		{"bad payload", uds.Message{Data: json.RawMessage(`[`)}, "invalid request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.handleGetOneTimeline(context.Background(), tt.msg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestListTimelines(t *testing.T) {
	d, _ := newTestDaemon(t)
	save(t, d, `{"savedObjectId":"a","title":"first","updated":10,"noteIds":["n1"],"pinnedEventIds":["e1","e2"]}`)
	save(t, d, `{"savedObjectId":"b","updated":20,"favorite":[{"userName":"elastic"}],
		"eventIdToNoteIds":[{"noteId":"n2","eventId":"e1"},{"noteId":"n3","eventId":"e1"}]}`)

	res, err := d.handleListTimelines(context.Background(), uds.Message{})
	if err != nil {
		t.Fatal(err)
	}
	list := res.([]core.OpenTimelineResult)
	if len(list) != 2 {
		t.Fatalf("got %d timelines, want 2", len(list))
	}

	if list[0].SavedObjectID != "b" || !list[0].Favorite || core.NoteCount(list[0]) != 2 || !core.IsUntitled(list[0]) {
		t.Errorf("unexpected summary for b: %+v", list[0])
	}
	if list[1].SavedObjectID != "a" || core.PinnedEventCount(list[1]) != 2 || core.NoteCount(list[1]) != 1 {
		t.Errorf("unexpected summary for a: %+v", list[1])
	}
}

func TestSaveTimelineRejectsDocumentWithoutID(t *testing.T) {
	d, _ := newTestDaemon(t)
	_, err := d.handleSaveTimeline(context.Background(), makeMsg(t, uds.SaveTimelineRequest{Timeline: json.RawMessage(`{"title":"x"}`)}))
	if err == nil {
		t.Fatal("expected error")
	}
	_, err = d.handleSaveTimeline(context.Background(), makeMsg(t, uds.SaveTimelineRequest{}))
	if err == nil {
		t.Fatal("expected error for empty request")
	}
}

func TestDeleteTimeline(t *testing.T) {
	d, _ := newTestDaemon(t)
	save(t, d, `{"savedObjectId":"t1"}`)

	if _, err := d.handleDeleteTimeline(context.Background(), makeMsg(t, uds.DeleteTimelineRequest{ID: "t1"})); err != nil {
		t.Fatal(err)
	}
	if _, err := d.handleDeleteTimeline(context.Background(), makeMsg(t, uds.DeleteTimelineRequest{ID: "t1"})); err == nil {
		t.Error("expected error deleting a missing timeline")
	}
	if got := gaugeValue(t, d.metrics, "timelined_stored_timelines"); got != 0 {
		t.Errorf("stored_timelines = %v, want 0", got)
	}
}

func TestRefreshUpdatesGauge(t *testing.T) {
	d, _ := newTestDaemon(t)
	save(t, d, `{"savedObjectId":"a"}`)
	save(t, d, `{"savedObjectId":"b"}`)

	if got := gaugeValue(t, d.metrics, "timelined_stored_timelines"); got != 2 {
		t.Errorf("stored_timelines = %v, want 2", got)
	}

	d.mu.Lock()
	count := d.count
	d.mu.Unlock()
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestRequestMetrics(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.metrics.observe(uds.MethodPing, time.Now(), nil)
	d.metrics.observe(uds.MethodGetOneTimeline, time.Now(), os.ErrNotExist)

	families, err := d.metrics.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	statuses := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "timelined_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			var method, status string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "method":
					method = l.GetValue()
				case "status":
					status = l.GetValue()
				}
			}
			statuses[method+"/"+status] = m.GetCounter().GetValue()
		}
	}
	if statuses["Ping/ok"] != 1 || statuses["GetOneTimeline/error"] != 1 {
		t.Errorf("unexpected request counters: %v", statuses)
	}
}

// TestOpenOverSocket runs the whole open flow: the daemon serves a stored
// document over its socket and the client normalizes and dispatches it.
func TestOpenOverSocket(t *testing.T) {
	d, sock := newTestDaemon(t)
	save(t, d, `{
		"__typename": "TimelineResult",
		"savedObjectId": "t1",
		"version": "v1",
		"title": "My TL",
		"noteIds": ["n1"],
		"pinnedEventIds": ["ev1"],
		"kqlQuery": {"filterQuery": {"kuery": {"kind": "kuery", "expression": "host.name: web"}, "serializedQuery": "{}"}},
		"notes": [{"noteId": "n1", "note": "check this", "updatedBy": "analyst"}]
	}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Shutdown()

	for i := 0; i < 50; i++ {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn, err := uds.Dial(sock)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	s := store.New(nil)
	reqCtx, reqCancel := context.WithTimeout(ctx, 2*time.Second)
	defer reqCancel()
	if err := opentimeline.Open(reqCtx, query.NewUDSClient(conn), s, "t1", false); err != nil {
		t.Fatalf("open: %v", err)
	}

	st := s.State()
	tl, ok := st.Timelines[core.WorkingTimelineID]
	if !ok {
		t.Fatal("working timeline not registered")
	}
	if tl.Title != "My TL" || tl.ID != "t1" {
		t.Errorf("unexpected timeline: id=%q title=%q", tl.ID, tl.Title)
	}
	if tl.KqlQuery.FilterQueryDraft == nil || *tl.KqlQuery.FilterQueryDraft.Expression != "host.name: web" {
		t.Errorf("kuery filter not applied: %+v", tl.KqlQuery)
	}
	if len(st.Notes) != 1 || st.Notes[0].User != "analyst" {
		t.Errorf("unexpected notes: %+v", st.Notes)
	}
	if st.Loading[core.WorkingTimelineID] {
		t.Error("loading slot still set")
	}

	if err := opentimeline.Open(reqCtx, query.NewUDSClient(conn), s, "missing", false); err == nil {
		t.Error("expected error for missing timeline")
	}
}

// TestResaveBroadcastsChange covers a save that replaces an existing
// timeline: the count stays at one but connected clients must still refresh.
func TestResaveBroadcastsChange(t *testing.T) {
	d, sock := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Shutdown()

	for i := 0; i < 50; i++ {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn, err := uds.Dial(sock)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	events := make(chan uds.TimelinesChangedEvent, 8)
	conn.OnEvent(func(msg uds.Message) {
		if msg.Method != uds.EventTimelinesChanged {
			return
		}
		var evt uds.TimelinesChangedEvent
		if err := msg.UnmarshalData(&evt); err == nil {
			events <- evt
		}
	})

	request := func(method string, data any) {
		t.Helper()
		reqCtx, reqCancel := context.WithTimeout(ctx, 2*time.Second)
		defer reqCancel()
		if _, err := conn.Request(reqCtx, method, data); err != nil {
			t.Fatalf("%s: %v", method, err)
		}
	}
	expectEvent := func(count int) {
		t.Helper()
		select {
		case evt := <-events:
			if evt.Count != count {
				t.Errorf("event count = %d, want %d", evt.Count, count)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for timelines.changed")
		}
	}

	request(uds.MethodPing, nil)
	request(uds.MethodSaveTimeline, uds.SaveTimelineRequest{Timeline: json.RawMessage(`{"savedObjectId":"t1","title":"old"}`)})
	expectEvent(1)

	request(uds.MethodSaveTimeline, uds.SaveTimelineRequest{Timeline: json.RawMessage(`{"savedObjectId":"t1","title":"renamed"}`)})
	expectEvent(1)

	request(uds.MethodDeleteTimeline, uds.DeleteTimelineRequest{ID: "t1"})
	expectEvent(0)

	// The periodic refresh only reports count moves.
	d.Refresh(ctx)
	select {
	case evt := <-events:
		t.Errorf("unexpected event from an unchanged refresh: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

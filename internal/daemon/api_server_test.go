package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"docflow/internal/api"
	"docflow/internal/conflict"
	"docflow/internal/testsupport"
)

func serve(t *testing.T, td *testDaemon, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	td.daemon.api.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestAPIServerStatus(t *testing.T) {
	td := newTestDaemon(t)
	td.start(t)

	w := serve(t, td, http.MethodGet, "/api/status", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id header")
	}
	var status api.DaemonStatus
	decode(t, w, &status)
	if !status.Running || !status.Queue.Running || len(status.Watchers) != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if _, ok := status.ImportStats["completed"]; !ok {
		t.Fatalf("expected import stats, got %v", status.ImportStats)
	}
	if td.daemon.APIAddr() == "" {
		t.Fatal("expected API listener address")
	}
}

func TestAPIServerPropagatesRequestID(t *testing.T) {
	td := newTestDaemon(t)
	td.start(t)

	w := serve(t, td, http.MethodGet, "/api/queue", nil, map[string]string{requestIDHeader: "req-42"})
	if got := w.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("request id = %q, want req-42", got)
	}
}

func TestAPIServerRequiresToken(t *testing.T) {
	td := newTestDaemon(t, testsupport.WithAPIToken("s3cret"))
	td.start(t)

	if w := serve(t, td, http.MethodGet, "/api/status", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := serve(t, td, http.MethodGet, "/api/status", nil, map[string]string{"Authorization": "Bearer wrong"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := serve(t, td, http.MethodGet, "/api/status", nil, map[string]string{"Authorization": "Bearer s3cret"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestAPIServerQueueControls(t *testing.T) {
	td := newTestDaemon(t)
	td.start(t)

	if w := serve(t, td, http.MethodPost, "/api/queue/pause", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("pause: expected 200, got %d", w.Code)
	}
	w := serve(t, td, http.MethodGet, "/api/queue", nil, nil)
	var resp queueResponse
	decode(t, w, &resp)
	if !resp.Stats.Paused {
		t.Fatal("expected queue to report paused")
	}
	if w := serve(t, td, http.MethodPost, "/api/queue/add", map[string]string{"file": "x"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", w.Code)
	}
	if w := serve(t, td, http.MethodPost, "/api/queue/add", map[string]string{"path": "/nonexistent/a.txt"}, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing file, got %d", w.Code)
	}
	if w := serve(t, td, http.MethodGet, "/api/queue/pause", nil, nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET pause, got %d", w.Code)
	}
	if w := serve(t, td, http.MethodPost, "/api/queue/resume", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("resume: expected 200, got %d", w.Code)
	}
}

func TestAPIServerConflictReview(t *testing.T) {
	td := newTestDaemon(t)
	td.start(t)

	c, _, err := td.resolver.Record(context.Background(), conflict.Candidate{
		OrderNumber:     "53335-a",
		BaseOrderNumber: "53335",
		Suffix:          "a",
		Filepath:        "/srv/orders/53335-a_uzyte_bele.csv",
		Filename:        "53335-a_uzyte_bele.csv",
		Parsed:          map[string]string{"orderNumber": "53335-a"},
		ExistingWindows: 4,
		NewWindows:      5,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	w := serve(t, td, http.MethodGet, "/api/conflicts?user=21", nil, nil)
	var list api.ConflictListResponse
	decode(t, w, &list)
	if len(list.Items) != 1 || list.Items[0].ID != c.ID {
		t.Fatalf("unexpected conflict list: %+v", list)
	}

	w = serve(t, td, http.MethodGet, fmt.Sprintf("/api/conflicts/%d", c.ID), nil, nil)
	var single api.ConflictResponse
	decode(t, w, &single)
	if single.Item.ParsedData == nil {
		t.Fatal("expected parsed data in single view")
	}

	resolve := map[string]any{"status": "resolved", "resolution": "replaced base", "userId": 21}
	target := fmt.Sprintf("/api/conflicts/%d/resolve", c.ID)
	if w := serve(t, td, http.MethodPost, target, resolve, nil); w.Code != http.StatusOK {
		t.Fatalf("resolve: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if w := serve(t, td, http.MethodPost, target, resolve, nil); w.Code != http.StatusConflict {
		t.Fatalf("second resolve: expected 409, got %d", w.Code)
	}
	if w := serve(t, td, http.MethodPost, "/api/conflicts/999/resolve", resolve, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown resolve: expected 404, got %d", w.Code)
	}
	if w := serve(t, td, http.MethodGet, "/api/conflicts/abc", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", w.Code)
	}
	if w := serve(t, td, http.MethodGet, "/api/conflicts/999", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", w.Code)
	}

	w = serve(t, td, http.MethodGet, "/api/conflicts/count", nil, nil)
	var count api.ConflictCount
	decode(t, w, &count)
	if count.Pending != 0 || count.Total != 1 {
		t.Fatalf("unexpected count: %+v", count)
	}
	if w := serve(t, td, http.MethodGet, "/api/conflicts?filter=bogus", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad filter: expected 400, got %d", w.Code)
	}
}

func TestAPIServerImports(t *testing.T) {
	td := newTestDaemon(t)
	td.start(t)

	w := serve(t, td, http.MethodGet, "/api/imports?limit=5&status=failed", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list api.ImportListResponse
	decode(t, w, &list)
	if len(list.Items) != 0 {
		t.Fatalf("expected empty ledger, got %+v", list.Items)
	}
	if w := serve(t, td, http.MethodGet, "/api/imports?limit=-1", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %d", w.Code)
	}
}

func TestStatusForError(t *testing.T) {
	cases := map[error]int{
		conflict.ErrAlreadyResolved: http.StatusConflict,
		conflict.ErrNotFound:        http.StatusNotFound,
		fmt.Errorf("boom"):          http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusForError(err); got != want {
			t.Fatalf("statusForError(%v) = %d, want %d", err, got, want)
		}
	}
}

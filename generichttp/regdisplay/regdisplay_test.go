package regdisplay_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/nasa-jpl/servolab/activity"
	"github.com/nasa-jpl/servolab/device"
	"github.com/nasa-jpl/servolab/generichttp/regdisplay"
	"github.com/nasa-jpl/servolab/registers"
)

type fixture struct {
	router  chi.Router
	tracker *activity.Tracker
	runner  *activity.Runner
	dev     *device.Mock
	now     time.Time
}

func setup(t *testing.T, withDevice bool) *fixture {
	t.Helper()
	cat, err := registers.NewCatalog(
		registers.Definition{Name: "gain", Subsystem: "pll", Address: 0x10, DisplayName: "loop gain", Visible: true, Format: registers.Hex(2)},
		registers.Definition{Name: "lock", Subsystem: "pll/status", Address: 0x11, Format: registers.Bool},
	)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := activity.NewTracker(cat, activity.DefaultHolds())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{tracker: tr, now: time.Unix(1000, 0)}
	tr.Now = func() time.Time { return f.now }
	view := regdisplay.NewView(cat)
	tr.SetMarkHandler(view)
	tr.SetValueHandler(view)
	f.runner = activity.NewRunner(tr, 0, zerolog.Nop())

	var rec *device.Recording
	if withDevice {
		f.dev = device.NewMock()
		rec = &device.Recording{Dev: f.dev, Rec: f.runner}
	}
	h := regdisplay.NewHTTPRegisters(view, f.runner, rec)
	f.router = chi.NewRouter()
	h.RT().Bind(f.router)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func decodeRow(t *testing.T, rr *httptest.ResponseRecorder) regdisplay.Row {
	t.Helper()
	var row regdisplay.Row
	if err := json.NewDecoder(rr.Body).Decode(&row); err != nil {
		t.Fatal(err)
	}
	return row
}

func TestWriteHighlightsAndFormats(t *testing.T) {
	f := setup(t, true)
	rr := f.do(http.MethodPost, "/registers/gain", `{"int": 255}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("write failed: %d %s", rr.Code, rr.Body.String())
	}
	if f.dev.Get(0x10) != 255 {
		t.Errorf("write did not reach the device")
	}

	rr = f.do(http.MethodGet, "/registers/gain", "")
	want := regdisplay.Row{
		Name: "gain", DisplayName: "loop gain", Subsystem: "pll", Address: "0x10", Visible: true,
		Known: true, Raw: 255, Value: "0xff",
		Marks: []activity.EventKind{activity.Written, activity.Changed},
	}
	if diff := cmp.Diff(want, decodeRow(t, rr)); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	f.runner.Sweep(f.now.Add(2 * time.Second))
	row := decodeRow(t, f.do(http.MethodGet, "/registers/gain", ""))
	if len(row.Marks) != 0 {
		t.Errorf("expected marks to clear after the sweep, got %v", row.Marks)
	}
	if row.Value != "0xff" {
		t.Errorf("value should survive the sweep, got %q", row.Value)
	}
}

func TestReadRoute(t *testing.T) {
	f := setup(t, true)
	f.dev.Set(0x11, 1)
	rr := f.do(http.MethodGet, "/registers/lock/read", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("read failed: %d %s", rr.Code, rr.Body.String())
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"int":1}` {
		t.Errorf("unexpected body %s", got)
	}
	row := decodeRow(t, f.do(http.MethodGet, "/registers/lock", ""))
	if row.Value != "on" || !row.Known {
		t.Errorf("expected lock to read on, got %+v", row)
	}
	if diff := cmp.Diff([]activity.EventKind{activity.Read, activity.Changed}, row.Marks); diff != "" {
		t.Errorf("marks mismatch (-want +got):\n%s", diff)
	}
}

func TestBadRequests(t *testing.T) {
	f := setup(t, true)
	if rr := f.do(http.MethodGet, "/registers/bogus", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown register, got %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "/registers/bogus", `{"int":1}`); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 writing an unknown register, got %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "/registers/gain", `not json`); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed body, got %d", rr.Code)
	}
	if f.tracker.Pending() != 0 {
		t.Errorf("rejected requests must not mark anything")
	}
}

func TestRowsAndTreeWithoutDevice(t *testing.T) {
	f := setup(t, false)
	if rr := f.do(http.MethodPost, "/registers/gain", `{"int":1}`); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected writes to be unavailable without a device, got %d", rr.Code)
	}

	var rows []regdisplay.Row
	if err := json.NewDecoder(f.do(http.MethodGet, "/registers", "").Body).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Name != "gain" || rows[1].Name != "lock" {
		t.Errorf("expected rows in catalog order, got %+v", rows)
	}
	if rows[1].Known || rows[1].Value != "" || rows[1].DisplayName != "lock" {
		t.Errorf("unobserved register should be unknown with an empty value, got %+v", rows[1])
	}

	var tree registers.Node
	if err := json.NewDecoder(f.do(http.MethodGet, "/tree", "").Body).Decode(&tree); err != nil {
		t.Fatal(err)
	}
	if tree.Find("pll/status") == nil {
		t.Errorf("expected pll/status in the tree")
	}
}

func TestMarksRoute(t *testing.T) {
	f := setup(t, false)
	f.runner.Touch(activity.Read, "lock")
	var marks []activity.Mark
	if err := json.NewDecoder(f.do(http.MethodGet, "/marks", "").Body).Decode(&marks); err != nil {
		t.Fatal(err)
	}
	if len(marks) != 1 || marks[0].Key.Register != "lock" || marks[0].Key.Kind != activity.Read {
		t.Errorf("unexpected marks %+v", marks)
	}
	if !marks[0].Expires.Equal(f.now.Add(100 * time.Millisecond)) {
		t.Errorf("unexpected expiry %v", marks[0].Expires)
	}
}

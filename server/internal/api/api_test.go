package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lapboard/lapboard/server/internal/api"
	"github.com/lapboard/lapboard/server/internal/board"
	"github.com/lapboard/lapboard/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

func newBoard(names ...string) *board.Service {
	svc := board.New(store.New(), nil)
	for _, n := range names {
		svc.RegisterCar(n, "") //nolint:errcheck
	}
	return svc
}

func carID(t *testing.T, svc *board.Service, i int) string {
	t.Helper()
	cars := svc.Snapshot().Cars
	if i >= len(cars) {
		t.Fatalf("car %d: only %d registered", i, len(cars))
	}
	return cars[i].ID
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body: %s)", rr.Code, want, rr.Body.String())
	}
}

func wantError(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	wantStatus(t, rr, want)
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if msg, _ := resp["error"].(string); msg == "" {
		t.Errorf("error: missing message in %v", resp)
	}
}

// --- GET /api/state ---------------------------------------------------------

func TestState_Empty(t *testing.T) {
	h := api.New(newBoard())
	rr := do(t, h, http.MethodGet, "/api/state", "")
	wantStatus(t, rr, http.StatusOK)

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var resp map[string][]interface{}
	decode(t, rr, &resp)
	for _, key := range []string{"cars", "times", "ranking"} {
		arr, ok := resp[key]
		if !ok || arr == nil {
			t.Errorf("%s: missing or null", key)
			continue
		}
		if len(arr) != 0 {
			t.Errorf("%s: got %d entries, want 0", key, len(arr))
		}
	}
}

func TestState_RankingOrder(t *testing.T) {
	svc := newBoard("slow", "fast", "idle")
	svc.RecordTime(carID(t, svc, 0), 70000)      //nolint:errcheck
	svc.RecordTime(carID(t, svc, 1), "1:05.250") //nolint:errcheck
	svc.RecordTime(carID(t, svc, 1), 66000)      //nolint:errcheck

	rr := do(t, api.New(svc), http.MethodGet, "/api/state", "")
	wantStatus(t, rr, http.StatusOK)

	var snap board.Snapshot
	decode(t, rr, &snap)
	if len(snap.Cars) != 3 || len(snap.Times) != 3 {
		t.Fatalf("got %d cars / %d lap lists, want 3 / 3", len(snap.Cars), len(snap.Times))
	}
	if len(snap.Ranking) != 2 {
		t.Fatalf("ranking: got %d entries, want 2", len(snap.Ranking))
	}
	first := snap.Ranking[0]
	if first.Name != "fast" || first.Best != 65250 || first.Count != 2 || first.Position != 1 {
		t.Errorf("first: got %+v", first)
	}
	if snap.Ranking[1].Name != "slow" || snap.Ranking[1].Position != 2 {
		t.Errorf("second: got %+v", snap.Ranking[1])
	}
}

// --- POST /api/cars ---------------------------------------------------------

func TestCreateCar_Created(t *testing.T) {
	svc := newBoard()
	rr := do(t, api.New(svc), http.MethodPost, "/api/cars", `{"name":"  Red Bull  ","color":"#f00"}`)
	wantStatus(t, rr, http.StatusCreated)

	var car store.Car
	decode(t, rr, &car)
	if car.ID == "" {
		t.Error("id: empty")
	}
	if car.Name != "Red Bull" {
		t.Errorf("name: got %q, want trimmed %q", car.Name, "Red Bull")
	}
	if car.Color != "#f00" {
		t.Errorf("color: got %q", car.Color)
	}
	if !svc.HasCar(car.ID) {
		t.Error("car not in board after create")
	}
}

func TestCreateCar_DefaultColor(t *testing.T) {
	rr := do(t, api.New(newBoard()), http.MethodPost, "/api/cars", `{"name":"plain"}`)
	wantStatus(t, rr, http.StatusCreated)

	var car store.Car
	decode(t, rr, &car)
	if car.Color != store.DefaultColor {
		t.Errorf("color: got %q, want %q", car.Color, store.DefaultColor)
	}
}

func TestCreateCar_InitialisesEmptyLapList(t *testing.T) {
	svc := newBoard()
	rr := do(t, api.New(svc), http.MethodPost, "/api/cars", `{"name":"new"}`)
	wantStatus(t, rr, http.StatusCreated)

	snap := svc.Snapshot()
	if len(snap.Times) != 1 || len(snap.Times[0].Times) != 0 {
		t.Errorf("times: got %+v, want one empty list", snap.Times)
	}
}

func TestCreateCar_InvalidInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"color":"#fff"}`},
		{"empty name", `{"name":""}`},
		{"whitespace name", `{"name":"   "}`},
		{"numeric name", `{"name":42}`},
		{"null name", `{"name":null}`},
		{"numeric color", `{"name":"ok","color":7}`},
		{"empty body", ``},
		{"malformed JSON", `{"name":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newBoard()
			rr := do(t, api.New(svc), http.MethodPost, "/api/cars", tc.body)
			wantError(t, rr, http.StatusBadRequest)
			if svc.CarCount() != 0 {
				t.Errorf("cars: got %d, want 0", svc.CarCount())
			}
		})
	}
}

// --- DELETE /api/cars/{id} --------------------------------------------------

func TestDeleteCar_OK(t *testing.T) {
	svc := newBoard("a", "b")
	id := carID(t, svc, 0)
	svc.RecordTime(id, 1000) //nolint:errcheck

	rr := do(t, api.New(svc), http.MethodDelete, "/api/cars/"+id, "")
	wantStatus(t, rr, http.StatusOK)

	var resp map[string]bool
	decode(t, rr, &resp)
	if !resp["ok"] {
		t.Errorf("ok: got %v", resp)
	}
	snap := svc.Snapshot()
	if len(snap.Cars) != 1 || len(snap.Times) != 1 || len(snap.Ranking) != 0 {
		t.Errorf("after delete: %d cars, %d lap lists, %d ranked", len(snap.Cars), len(snap.Times), len(snap.Ranking))
	}
}

func TestDeleteCar_Unknown(t *testing.T) {
	svc := newBoard("a")
	rr := do(t, api.New(svc), http.MethodDelete, "/api/cars/nope", "")
	wantError(t, rr, http.StatusNotFound)
	if svc.CarCount() != 1 {
		t.Errorf("cars: got %d, want 1", svc.CarCount())
	}
}

// --- POST /api/times/{carId} ------------------------------------------------

func TestRecordTime_Forms(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		wantMS    int64
		formatted string
	}{
		{"minutes text", `{"time":"1:05.250"}`, 65250, "01:05.250"},
		{"seconds text", `{"time":"5.25"}`, 5250, "5.250"},
		{"number", `{"time":5250}`, 5250, "5.250"},
		{"fractional number truncates", `{"time":5250.9}`, 5250, "5.250"},
		{"negative number clamps", `{"time":-5}`, 0, "0.000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newBoard("car")
			id := carID(t, svc, 0)
			rr := do(t, api.New(svc), http.MethodPost, "/api/times/"+id, tc.body)
			wantStatus(t, rr, http.StatusCreated)

			var rec board.Recorded
			decode(t, rr, &rec)
			if rec.CarID != id || rec.MS != tc.wantMS || rec.Formatted != tc.formatted {
				t.Errorf("got %+v, want {%s %d %s}", rec, id, tc.wantMS, tc.formatted)
			}
		})
	}
}

func TestRecordTime_Appends(t *testing.T) {
	svc := newBoard("car")
	id := carID(t, svc, 0)
	h := api.New(svc)
	do(t, h, http.MethodPost, "/api/times/"+id, `{"time":3000}`)
	do(t, h, http.MethodPost, "/api/times/"+id, `{"time":2000}`)

	laps := svc.Snapshot().Times[0].Times
	if len(laps) != 2 || laps[0] != 3000 || laps[1] != 2000 {
		t.Errorf("laps: got %v, want [3000 2000]", laps)
	}
}

func TestRecordTime_InvalidTime(t *testing.T) {
	for _, body := range []string{`{"time":"1:60.000"}`, `{"time":"abc"}`, `{}`, `{"time":true}`, ``} {
		svc := newBoard("car")
		id := carID(t, svc, 0)
		rr := do(t, api.New(svc), http.MethodPost, "/api/times/"+id, body)
		wantError(t, rr, http.StatusBadRequest)
		if n := len(svc.Snapshot().Times[0].Times); n != 0 {
			t.Errorf("body %q: %d laps recorded, want 0", body, n)
		}
	}
}

func TestRecordTime_UnknownCarBeforeInvalidTime(t *testing.T) {
	rr := do(t, api.New(newBoard()), http.MethodPost, "/api/times/ghost", `{"time":"garbage"}`)
	wantError(t, rr, http.StatusNotFound)
}

// --- DELETE /api/times/{carId}/{index} --------------------------------------

func TestDeleteTime_ShiftsLaterLaps(t *testing.T) {
	svc := newBoard("car")
	id := carID(t, svc, 0)
	for _, ms := range []int{1000, 2000, 3000} {
		svc.RecordTime(id, ms) //nolint:errcheck
	}

	rr := do(t, api.New(svc), http.MethodDelete, "/api/times/"+id+"/1", "")
	wantStatus(t, rr, http.StatusOK)

	laps := svc.Snapshot().Times[0].Times
	if len(laps) != 2 || laps[0] != 1000 || laps[1] != 3000 {
		t.Errorf("laps: got %v, want [1000 3000]", laps)
	}
}

func TestDeleteTime_Errors(t *testing.T) {
	svc := newBoard("car")
	id := carID(t, svc, 0)
	svc.RecordTime(id, 1000) //nolint:errcheck
	h := api.New(svc)

	cases := []struct {
		name string
		path string
		want int
	}{
		{"index past end", "/api/times/" + id + "/1", http.StatusBadRequest},
		{"negative index", "/api/times/" + id + "/-1", http.StatusBadRequest},
		{"non-integer index", "/api/times/" + id + "/x", http.StatusBadRequest},
		{"fractional index", "/api/times/" + id + "/0.5", http.StatusBadRequest},
		{"unknown car", "/api/times/ghost/0", http.StatusNotFound},
		{"unknown car with bad index", "/api/times/ghost/x", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodDelete, tc.path, "")
			wantError(t, rr, tc.want)
		})
	}
	if n := len(svc.Snapshot().Times[0].Times); n != 1 {
		t.Errorf("laps: got %d, want 1 after failed deletes", n)
	}
}

// --- misc routes ------------------------------------------------------------

func TestHealth(t *testing.T) {
	h := api.New(newBoard("a", "b"), api.WithObserverCount(func() int { return 4 }))
	rr := do(t, h, http.MethodGet, "/healthz", "")
	wantStatus(t, rr, http.StatusOK)

	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" || resp.Cars != 2 || resp.Observers != 4 {
		t.Errorf("health: got %+v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := api.New(newBoard())
	rr := do(t, h, http.MethodPut, "/api/state", "")
	wantError(t, rr, http.StatusMethodNotAllowed)
}

func TestUnknownAPIRoute(t *testing.T) {
	rr := do(t, api.New(newBoard()), http.MethodGet, "/api/nothing", "")
	wantError(t, rr, http.StatusNotFound)
}

func TestCORSPreflight(t *testing.T) {
	h := api.New(newBoard())
	req := httptest.NewRequest(http.MethodOptions, "/api/cars", nil)
	req.Header.Set("Origin", "http://pit-wall.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want *", got)
	}
}

func TestMountedHandlers(t *testing.T) {
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) })
	h := api.New(newBoard(), api.WithWebSocket(ws), api.WithMetrics(metrics))

	if rr := do(t, h, http.MethodGet, "/ws", ""); rr.Code != http.StatusTeapot {
		t.Errorf("/ws: got %d, want 418", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/metrics", ""); rr.Code != http.StatusAccepted {
		t.Errorf("/metrics: got %d, want 202", rr.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>board</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := api.New(newBoard(), api.WithPublicDir(dir))

	rr := do(t, h, http.MethodGet, "/", "")
	wantStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "board") {
		t.Errorf("body: got %q", rr.Body.String())
	}

	// API routes still win over the static tree.
	rr = do(t, h, http.MethodGet, "/api/state", "")
	wantStatus(t, rr, http.StatusOK)
}

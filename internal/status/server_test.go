package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"instabatch/internal/audit"
	"instabatch/internal/batcher"
	"instabatch/internal/eventbus"
	"instabatch/internal/host"
	logx "instabatch/pkg/logx"
)

func TestEndpoints(t *testing.T) {
	srv := New(Options{Pprof: true}, Sources{
		Snapshot: func() batcher.Snapshot { return batcher.Snapshot{RunID: "r1", BatchIndex: 2, ActionSignature: "hack-2-0"} },
		Pool:     func() host.Snapshot { return host.Snapshot{Capacity: 8, Dispatched: 5} },
	}, logx.Nop(), nil)

	for i := 0; i < 3; i++ {
		srv.observe(eventbus.Event{Type: eventbus.ActionFired, Data: audit.Record{Signature: "weaken-0-1", Batch: i}})
	}
	srv.observe(eventbus.Event{Type: eventbus.RunStopped, Data: batcher.Result{RunID: "r1", StopReason: batcher.StopBatchCap}})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get := func(path string, out any) int {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		if out != nil && resp.StatusCode == http.StatusOK {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return resp.StatusCode
	}

	if code := get("/healthz", nil); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}

	var st statusDoc
	get("/status", &st)
	if st.Snapshot.RunID != "r1" || st.Result == nil || st.Result.StopReason != batcher.StopBatchCap {
		t.Fatalf("status = %+v", st)
	}

	var pool host.Snapshot
	get("/history", &pool)
	if pool.Capacity != 8 || pool.Dispatched != 5 {
		t.Fatalf("history = %+v", pool)
	}

	var fired []audit.Record
	get("/fired?limit=2", &fired)
	if len(fired) != 2 || fired[1].Batch != 2 {
		t.Fatalf("fired = %+v", fired)
	}
	if code := get("/fired?limit=x", nil); code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d", code)
	}
	if code := get("/debug/pprof/", nil); code != http.StatusOK {
		t.Fatalf("pprof index = %d", code)
	}
}

func TestPprofRefusedOnPublicAddr(t *testing.T) {
	srv := New(Options{Addr: "0.0.0.0:8089", Pprof: true}, Sources{}, logx.Nop(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/debug/pprof/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("pprof on public addr = %d", resp.StatusCode)
	}
}

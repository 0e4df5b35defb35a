package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sluice-dev/sluice/pkg/queue"
)

type staticSource struct{ s queue.Stats }

func (s staticSource) Stats() queue.Stats { return s.s }

func TestCollectorRegistersAndGathers(t *testing.T) {
	src := staticSource{s: queue.Stats{
		Size: 3, ActiveCount: 1, Running: true,
		Executed: 10, Rejected: 2, Expired: 1, Succeeded: 7, Errored: 3,
	}}
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector("test", src)); err != nil {
		t.Fatalf("register: %v", err)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]bool{}
	for _, mf := range mfs {
		got[mf.GetName()] = true
	}
	for _, want := range []string{
		"sluice_queue_size", "sluice_queue_active", "sluice_queue_running",
		"sluice_queue_executed_total", "sluice_queue_rejected_total",
		"sluice_queue_expired_total", "sluice_queue_settled_total",
	} {
		if !got[want] {
			t.Fatalf("missing metric family %s (got %v)", want, got)
		}
	}
}

func TestCollectorReadsLiveQueue(t *testing.T) {
	q, err := queue.New(func(int) {}, queue.Options[int]{Stopped: true, MaxSize: 1})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	q.AddItem(1)
	q.AddItem(2) // rejected
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector("live", q)); err != nil {
		t.Fatalf("register: %v", err)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		switch mf.GetName() {
		case "sluice_queue_size":
			if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 1 {
				t.Fatalf("size = %v, want 1", v)
			}
		case "sluice_queue_rejected_total":
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
				t.Fatalf("rejected = %v, want 1", v)
			}
		}
	}
}

package pairs

import (
	"sync"
	"testing"
	"time"

	"github.com/rickgao/pairstream/internal/model"
)

var (
	weth = model.PairIdentity{Chain: "ethereum", Address: "0xabc", Symbol: "WETH/USDC"}
	sol  = model.PairIdentity{Chain: "solana", Address: "So111", Symbol: "SOL/USDC"}
)

func TestRegistry_AddAndGet(t *testing.T) {
	r := NewRegistry(weth)

	got, ok := r.Get(weth.Key())
	if !ok {
		t.Fatal("pair not found")
	}
	if got.Pair != weth {
		t.Errorf("Pair = %+v, want %+v", got.Pair, weth)
	}
	if got.Monitored {
		t.Error("new pair should not be monitored")
	}
	if got.AddedAt.IsZero() {
		t.Error("AddedAt not set")
	}
}

func TestRegistry_AddDuplicate(t *testing.T) {
	r := NewRegistry(weth)

	dup := weth
	dup.Symbol = "other label"
	if r.Add(dup) {
		t.Error("Add() of known pair = true, want false")
	}
	if r.Label(weth.Key()) != "WETH/USDC" {
		t.Error("duplicate add replaced the entry")
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(weth, sol)

	if !r.Remove(weth.Key()) {
		t.Error("Remove() = false, want true")
	}
	if r.Remove(weth.Key()) {
		t.Error("second Remove() = true, want false")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_SetMonitored(t *testing.T) {
	r := NewRegistry(weth, sol)

	r.SetMonitored(weth.Key(), true, "")
	r.SetMonitored(sol.Key(), true, "")
	if r.MonitoredCount() != 2 {
		t.Fatalf("MonitoredCount() = %d, want 2", r.MonitoredCount())
	}

	r.SetMonitored(sol.Key(), false, "reconnect limit exceeded")
	got, _ := r.Get(sol.Key())
	if got.Monitored || got.StopReason != "reconnect limit exceeded" {
		t.Errorf("entry = %+v", got)
	}
	if r.MonitoredCount() != 1 {
		t.Errorf("MonitoredCount() = %d, want 1", r.MonitoredCount())
	}

	r.SetMonitored(sol.Key(), true, "")
	got, _ = r.Get(sol.Key())
	if got.StopReason != "" {
		t.Errorf("StopReason = %q, want cleared", got.StopReason)
	}

	// Unknown keys are ignored.
	r.SetMonitored("bsc:0x0", true, "")
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_RecordAccepted(t *testing.T) {
	r := NewRegistry(weth)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.RecordAccepted(weth.Key())
	r.RecordAccepted(weth.Key())

	got, _ := r.Get(weth.Key())
	if got.Accepted != 2 {
		t.Errorf("Accepted = %d, want 2", got.Accepted)
	}
	if !got.LastAccepted.Equal(fixed) {
		t.Errorf("LastAccepted = %v, want %v", got.LastAccepted, fixed)
	}
}

func TestRegistry_Label(t *testing.T) {
	r := NewRegistry(weth, model.PairIdentity{Chain: "bsc", Address: "0x1"})

	tests := []struct {
		key  model.PairKey
		want string
	}{
		{weth.Key(), "WETH/USDC"},
		{"bsc:0x1", "bsc:0x1"},
		{"unknown:0x2", "unknown:0x2"},
	}
	for _, tt := range tests {
		if got := r.Label(tt.key); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestRegistry_AllSorted(t *testing.T) {
	r := NewRegistry(sol, weth)

	pairs := r.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("len = %d, want 2", len(pairs))
	}
	if pairs[0] != weth || pairs[1] != sol {
		t.Errorf("Pairs() = %+v, want sorted by key", pairs)
	}
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry(weth)

	got, _ := r.Get(weth.Key())
	got.Monitored = true

	again, _ := r.Get(weth.Key())
	if again.Monitored {
		t.Error("mutating a returned entry changed the registry")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(weth, sol)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.All()
				r.MonitoredCount()
				r.Label(weth.Key())
			}
		}()
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.SetMonitored(weth.Key(), j%2 == 0, "")
				r.RecordAccepted(sol.Key())
				r.Add(model.PairIdentity{Chain: "bsc", Address: string(rune('a' + id))})
			}
		}(i)
	}
	wg.Wait()

	if got, _ := r.Get(sol.Key()); got.Accepted != 1000 {
		t.Errorf("Accepted = %d, want 1000", got.Accepted)
	}
}

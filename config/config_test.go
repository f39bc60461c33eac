package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Engine.Shards != 2 || len(cfg.Engine.Symbols) != 2 {
		t.Errorf("engine defaults: %+v", cfg.Engine)
	}
	if cfg.Durability.SnapshotInterval != 30*time.Second {
		t.Errorf("snapshot interval: %v", cfg.Durability.SnapshotInterval)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("SYMBOLS", "AAA, BBB ,CCC")
	t.Setenv("SHARDS", "3")
	t.Setenv("CORES", "0,2,4")
	t.Setenv("SPIN_BUDGET", "500")
	t.Setenv("ALLOC", "hybrid")
	t.Setenv("FIFO_SHARE", "70")
	t.Setenv("KAFKA_FAST_PATH", "true")

	cfg := LoadFromEnv("")
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTP_ADDR override ignored: %q", cfg.HTTPAddr)
	}
	if len(cfg.Engine.Symbols) != 3 || cfg.Engine.Symbols[1] != "BBB" {
		t.Errorf("symbol list not trimmed: %v", cfg.Engine.Symbols)
	}
	if cfg.Engine.Shards != 3 || cfg.Engine.SpinBudget != 500 {
		t.Errorf("engine overrides: %+v", cfg.Engine)
	}
	if len(cfg.Engine.Cores) != 3 || cfg.Engine.Cores[2] != 4 {
		t.Errorf("cores: %v", cfg.Engine.Cores)
	}
	if cfg.Engine.Alloc != "hybrid" || cfg.Engine.FIFOShare != 70 {
		t.Errorf("alloc: %q share %d", cfg.Engine.Alloc, cfg.Engine.FIFOShare)
	}
	if !cfg.Kafka.EnableFast {
		t.Error("kafka fast path should be enabled")
	}
}

func TestBadEnvValuesKeepDefaults(t *testing.T) {
	t.Setenv("SHARDS", "not-a-number")
	t.Setenv("INGRESS_CAP", "-5")

	cfg := LoadFromEnv("")
	def := Default()
	if cfg.Engine.Shards != def.Engine.Shards {
		t.Errorf("bad SHARDS should keep default, got %d", cfg.Engine.Shards)
	}
	if cfg.Engine.IngressCapacity != def.Engine.IngressCapacity {
		t.Errorf("negative capacity should keep default, got %d", cfg.Engine.IngressCapacity)
	}
}

func TestAssignmentRoundRobin(t *testing.T) {
	e := Engine{Symbols: []string{"A", "B", "C", "D", "E"}, Shards: 2}
	got := e.Assignment()
	if len(got) != 2 {
		t.Fatalf("want 2 shards, got %d", len(got))
	}
	if len(got[0]) != 3 || len(got[1]) != 2 {
		t.Errorf("uneven split wrong: %v", got)
	}
	if got[0][0] != "A" || got[1][0] != "B" {
		t.Errorf("round robin order wrong: %v", got)
	}
}

func TestCoreMapTruncatesToShards(t *testing.T) {
	e := Engine{Shards: 2, Cores: []int{0, 1, 2, 3}}
	got := e.CoreMap()
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("core map: %v", got)
	}
}

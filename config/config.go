// Package config loads engine settings from the environment, with an
// optional .env file underneath. Priority: ENV > .env file > defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Engine struct {
	// Symbols, comma separated, distributed round-robin across shards.
	Symbols []string
	Shards  int
	// Cores pins shard i to Cores[i]; empty or short lists leave the
	// remaining shards unpinned.
	Cores []int

	IngressCapacity int
	EgressCapacity  int
	RetireCapacity  uint64
	SpinBudget      int

	// Alloc: "fifo", "prorata" or "hybrid". SelfTrade: "allow",
	// "cancel-resting", "reject-taker".
	Alloc     string
	SelfTrade string
	// FIFOShare is the percent of each level filled in arrival order
	// under "hybrid" allocation. Zero picks the default split.
	FIFOShare int
}

type Durability struct {
	JournalDir       string
	JournalSegSize   int64
	OutboxDir        string
	SnapshotDir      string
	SnapshotInterval time.Duration
}

type Kafka struct {
	Brokers      []string
	Topic        string
	ReplayEvery  time.Duration
	EnableFast   bool // best-effort producer on the publish path
	EnableReplay bool // outbox broadcaster
}

type Config struct {
	HTTPAddr   string
	Engine     Engine
	Durability Durability
	Kafka      Kafka
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Engine: Engine{
			Symbols:         []string{"BTC-USD", "ETH-USD"},
			Shards:          2,
			IngressCapacity: 1 << 14,
			EgressCapacity:  1 << 14,
			RetireCapacity:  1 << 12,
			SpinBudget:      2000,
			Alloc:           "fifo",
			SelfTrade:       "allow",
		},
		Durability: Durability{
			JournalDir:       "data/journal",
			JournalSegSize:   64 << 20,
			OutboxDir:        "data/outbox",
			SnapshotDir:      "data/snapshots",
			SnapshotInterval: 30 * time.Second,
		},
		Kafka: Kafka{
			Brokers:      []string{"localhost:9092"},
			Topic:        "execution-reports",
			ReplayEvery:  250 * time.Millisecond,
			EnableFast:   false,
			EnableReplay: false,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Engine.Symbols = splitList(v)
	}
	if v := envInt("SHARDS"); v > 0 {
		cfg.Engine.Shards = v
	}
	if v := os.Getenv("CORES"); v != "" {
		cfg.Engine.Cores = nil
		for _, part := range splitList(v) {
			if c, err := strconv.Atoi(part); err == nil {
				cfg.Engine.Cores = append(cfg.Engine.Cores, c)
			}
		}
	}
	if v := envInt("INGRESS_CAP"); v > 0 {
		cfg.Engine.IngressCapacity = v
	}
	if v := envInt("EGRESS_CAP"); v > 0 {
		cfg.Engine.EgressCapacity = v
	}
	if v := envInt("RETIRE_CAP"); v > 0 {
		cfg.Engine.RetireCapacity = uint64(v)
	}
	if v := envInt("SPIN_BUDGET"); v > 0 {
		cfg.Engine.SpinBudget = v
	}
	if v := os.Getenv("ALLOC"); v != "" {
		cfg.Engine.Alloc = v
	}
	if v := os.Getenv("SELF_TRADE"); v != "" {
		cfg.Engine.SelfTrade = v
	}
	if v := envInt("FIFO_SHARE"); v > 0 {
		cfg.Engine.FIFOShare = v
	}

	if v := os.Getenv("JOURNAL_DIR"); v != "" {
		cfg.Durability.JournalDir = v
	}
	if v := envInt("JOURNAL_SEG_MB"); v > 0 {
		cfg.Durability.JournalSegSize = int64(v) << 20
	}
	if v := os.Getenv("OUTBOX_DIR"); v != "" {
		cfg.Durability.OutboxDir = v
	}
	if v := os.Getenv("SNAPSHOT_DIR"); v != "" {
		cfg.Durability.SnapshotDir = v
	}
	if v := envInt("SNAPSHOT_INTERVAL_SEC"); v > 0 {
		cfg.Durability.SnapshotInterval = time.Duration(v) * time.Second
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := envInt("KAFKA_REPLAY_MS"); v > 0 {
		cfg.Kafka.ReplayEvery = time.Duration(v) * time.Millisecond
	}
	if v := os.Getenv("KAFKA_FAST_PATH"); v != "" {
		cfg.Kafka.EnableFast = v == "true"
	}
	if v := os.Getenv("KAFKA_REPLAY"); v != "" {
		cfg.Kafka.EnableReplay = v == "true"
	}

	return cfg
}

// Assignment distributes symbols round-robin across shards.
func (e Engine) Assignment() map[int][]string {
	out := make(map[int][]string, e.Shards)
	for id := 0; id < e.Shards; id++ {
		out[id] = nil
	}
	for i, sym := range e.Symbols {
		id := i % e.Shards
		out[id] = append(out[id], sym)
	}
	return out
}

// CoreMap builds the shard-to-CPU table from the Cores list.
func (e Engine) CoreMap() map[int]int {
	out := make(map[int]int, len(e.Cores))
	for id, c := range e.Cores {
		if id >= e.Shards {
			break
		}
		out[id] = c
	}
	return out
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

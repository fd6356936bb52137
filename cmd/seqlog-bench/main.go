package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dd0wney/cluso-seqlog/pkg/config"
	"github.com/dd0wney/cluso-seqlog/pkg/logging"
	"github.com/dd0wney/cluso-seqlog/pkg/metrics"
	"github.com/dd0wney/cluso-seqlog/pkg/persistence"
	"github.com/dd0wney/cluso-seqlog/pkg/raftlog"
)

const quorumID = "bench"

func main() {
	configPath := flag.String("config", "", "YAML config file")
	numEntries := flag.Int("entries", 100000, "Number of entries to append")
	payloadSize := flag.Int("payload", 128, "Payload size in bytes")
	numLookups := flag.Int("lookups", 10000, "Number of random lookups")
	batchSize := flag.Int("batch", 256, "Entries per append")
	compression := flag.String("compression", "", "Override compression (none, snappy, zstd, lz4)")
	maxEntrySeek := flag.Int("seek", 0, "Override max entry seek")
	hold := flag.Duration("hold", 0, "Keep serving metrics this long after the run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *compression != "" {
		cfg.Compression = *compression
	}
	if *maxEntrySeek > 0 {
		cfg.MaxEntrySeek = *maxEntrySeek
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if cfg.BackendType() == persistence.BackendMmap {
		log.Fatalf("The mmap backend is read-only; use file or memory")
	}
	codec, err := cfg.CompressionType()
	if err != nil {
		log.Fatalf("Invalid compression: %v", err)
	}

	logger := cfg.Logger()
	logging.SetDefaultLogger(logger)
	registry := metrics.NewRegistry()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, registry, logger)
	}

	fmt.Printf("🔬 Sequence Navigator Benchmark\n")
	fmt.Printf("===============================\n")
	fmt.Printf("   Backend:        %s\n", cfg.Backend)
	fmt.Printf("   Compression:    %s\n", cfg.Compression)
	fmt.Printf("   Max entry seek: %d\n\n", cfg.MaxEntrySeek)

	dir := filepath.Join(cfg.DataDir, "seqlog-bench")
	os.RemoveAll(dir)

	raft, err := raftlog.NewWALRaftLog(dir,
		raftlog.WithBackend(cfg.BackendType()),
		raftlog.WithSyncOnAppend(cfg.SyncOnAppend),
		raftlog.WithCompression(codec),
		raftlog.WithMaxEntrySeek(cfg.MaxEntrySeek),
		raftlog.WithLogger(logger),
		raftlog.WithMetrics(registry),
	)
	if err != nil {
		log.Fatalf("Failed to create log: %v", err)
	}
	defer raft.Close()

	// Test 1: appends
	fmt.Printf("📝 Appending %d entries of %d bytes...\n", *numEntries, *payloadSize)
	writeStats := benchmarkAppends(raft, *numEntries, *payloadSize, *batchSize)
	fmt.Printf("   Duration:    %s\n", writeStats.Duration)
	fmt.Printf("   Write Rate:  %.0f entries/sec\n", float64(*numEntries)/writeStats.Duration.Seconds())
	fmt.Printf("   Log Size:    %.2f MB\n\n", float64(writeStats.Bytes)/1024/1024)

	l, err := raft.Log(quorumID)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	nav := l.Navigator()
	fmt.Printf("🗂️  Index after appends: %d entries\n\n", nav.IndexLen())

	targets := make([]uint64, *numLookups)
	for i := range targets {
		targets[i] = rand.Uint64N(uint64(*numEntries)) + 1
	}

	// Test 2: cold lookups scan from the nearest indexed entry
	fmt.Printf("🥶 Cold lookups...\n")
	cold := benchmarkLookups(nav.AddressOf, targets)
	printLookupStats(cold)
	fmt.Printf("   Index size:  %d entries\n\n", nav.IndexLen())

	// Test 3: the same targets again hit the cache
	fmt.Printf("🔥 Warm lookups...\n")
	warm := benchmarkLookups(nav.AddressOf, targets)
	printLookupStats(warm)
	fmt.Printf("\n")

	// Test 4: locating the tail
	fmt.Printf("⏭️  Last entry...\n")
	start := time.Now()
	last, err := l.LastEntry()
	if err != nil {
		log.Fatalf("Failed to read last entry: %v", err)
	}
	fmt.Printf("   Last LSN:    %d\n", last.LSN)
	fmt.Printf("   Duration:    %s\n\n", time.Since(start))

	// Summary
	fmt.Printf("📊 Comparison\n")
	fmt.Printf("===============================\n")
	fmt.Printf("Cold avg:         %.2fµs\n", cold.AvgLatencyUs)
	fmt.Printf("Warm avg:         %.2fµs\n", warm.AvgLatencyUs)
	if warm.AvgLatencyUs > 0 {
		fmt.Printf("Cache speedup:    %.1fx\n", cold.AvgLatencyUs/warm.AvgLatencyUs)
	}

	if *hold > 0 && cfg.MetricsAddr != "" {
		fmt.Printf("\n📈 Serving metrics on %s for %s\n", cfg.MetricsAddr, *hold)
		time.Sleep(*hold)
	}
}

type WriteStats struct {
	Duration time.Duration
	Bytes    int64
}

type LookupStats struct {
	Lookups      int
	Duration     time.Duration
	AvgLatencyUs float64
	Throughput   float64
}

func benchmarkAppends(raft *raftlog.WALRaftLog, numEntries, payloadSize, batchSize int) WriteStats {
	payload := make([]byte, payloadSize)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	start := time.Now()
	batch := make([]raftlog.LogEntry, 0, batchSize)
	for i := 1; i <= numEntries; i++ {
		batch = append(batch, raftlog.LogEntry{Index: uint64(i), Term: 1, Data: payload})
		if len(batch) == batchSize || i == numEntries {
			if err := raft.LogEntries(quorumID, batch); err != nil {
				log.Fatalf("Append failed at %d: %v", i, err)
			}
			batch = batch[:0]
		}
	}
	duration := time.Since(start)

	l, err := raft.Log(quorumID)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	if err := l.Sync(); err != nil {
		log.Fatalf("Sync failed: %v", err)
	}
	size, err := l.Size()
	if err != nil {
		log.Fatalf("Failed to read log size: %v", err)
	}

	return WriteStats{Duration: duration, Bytes: size}
}

func benchmarkLookups(addressOf func(uint64) (int64, error), targets []uint64) LookupStats {
	start := time.Now()
	for _, seq := range targets {
		if _, err := addressOf(seq); err != nil {
			log.Fatalf("Lookup of %d failed: %v", seq, err)
		}
	}
	duration := time.Since(start)

	stats := LookupStats{Lookups: len(targets), Duration: duration}
	if len(targets) > 0 {
		stats.AvgLatencyUs = float64(duration.Microseconds()) / float64(len(targets))
		stats.Throughput = float64(len(targets)) / duration.Seconds()
	}
	return stats
}

func printLookupStats(stats LookupStats) {
	fmt.Printf("   Lookups:     %d\n", stats.Lookups)
	fmt.Printf("   Duration:    %s\n", stats.Duration)
	fmt.Printf("   Avg Latency: %.2fµs\n", stats.AvgLatencyUs)
	fmt.Printf("   Throughput:  %.0f lookups/sec\n", stats.Throughput)
}

func serveMetrics(addr string, registry *metrics.Registry, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", logging.Error(err))
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dd0wney/cluso-seqlog/pkg/config"
	"github.com/dd0wney/cluso-seqlog/pkg/logging"
	"github.com/dd0wney/cluso-seqlog/pkg/persistence"
	"github.com/dd0wney/cluso-seqlog/pkg/wal"
)

// maxListedIndexEntries limits how much of the index is printed.
const maxListedIndexEntries = 20

func main() {
	configPath := flag.String("config", "", "YAML config file")
	file := flag.String("file", "", "Log file to inspect")
	quorum := flag.String("quorum", "", "Quorum ID; inspects <data_dir>/<quorum>.log")
	from := flag.Uint64("from", 0, "First LSN to print")
	to := flag.Uint64("to", 0, "Last LSN to print (default: from)")
	showData := flag.Bool("data", false, "Print entry payloads")
	verify := flag.Bool("verify", false, "Replay every entry and check LSNs are contiguous")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}

	logger := cfg.Logger()
	logging.SetDefaultLogger(logger)

	path := *file
	if path == "" && *quorum != "" {
		path = filepath.Join(cfg.DataDir, *quorum+".log")
	}
	if path == "" {
		fatalf("Either -file or -quorum is required")
	}

	fmt.Printf("🔍 Sequential Log Inspector\n")
	fmt.Printf("===========================\n\n")

	store, err := persistence.OpenMapped(path)
	if err != nil {
		fatalf("Failed to open %s: %v", path, err)
	}

	l, err := wal.Open(store,
		wal.WithID(filepath.Base(path)),
		wal.WithMaxEntrySeek(cfg.MaxEntrySeek),
		wal.WithLogger(logger),
	)
	if err != nil {
		store.Close()
		fatalf("Failed to open log: %v", err)
	}
	defer l.Close()

	size, _ := l.Size()
	fmt.Printf("📂 %s\n", path)
	fmt.Printf("   Size:        %.2f MB (%d bytes)\n", float64(size)/1024/1024, size)

	if l.IsEmpty() {
		fmt.Printf("   Entries:     none\n")
		return
	}

	fmt.Printf("   First LSN:   %d\n", l.FirstSeqNum())
	fmt.Printf("   Last LSN:    %d\n", l.LastSeqNum())
	fmt.Printf("   Entries:     %d\n\n", l.LastSeqNum()-l.FirstSeqNum()+1)

	first, err := l.GetEntry(l.FirstSeqNum())
	if err != nil {
		fatalf("Failed to read first entry: %v", err)
	}
	last, err := l.LastEntry()
	if err != nil {
		fatalf("Failed to read last entry: %v", err)
	}
	fmt.Printf("📄 First and last entries\n")
	printEntry(first, *showData)
	printEntry(last, *showData)
	fmt.Printf("\n")

	if *from > 0 {
		end := *to
		if end < *from {
			end = *from
		}
		entries, err := l.Subsequence(*from, end+1)
		if err != nil {
			fatalf("Failed to read [%d, %d]: %v", *from, end, err)
		}
		fmt.Printf("📜 Entries %d..%d\n", *from, end)
		for _, e := range entries {
			printEntry(e, *showData)
		}
		fmt.Printf("\n")
	}

	if *verify {
		fmt.Printf("✔️  Verifying...\n")
		start := time.Now()
		count, expected := uint64(0), l.FirstSeqNum()
		err := l.Replay(func(e *wal.Entry) error {
			if e.LSN != expected {
				return fmt.Errorf("expected LSN %d, found %d", expected, e.LSN)
			}
			expected++
			count++
			return nil
		})
		if err != nil {
			fatalf("Verification failed: %v", err)
		}
		want := l.LastSeqNum() - l.FirstSeqNum() + 1
		if count != want {
			fatalf("Verification failed: replayed %d of %d entries", count, want)
		}
		fmt.Printf("   Replayed:    %d entries in %s\n\n", count, time.Since(start))
	}

	nav := l.Navigator()
	seqNums := nav.IndexedSeqNums()
	fmt.Printf("🗂️  Navigator index\n")
	fmt.Printf("   Max seek:    %d\n", nav.MaxEntrySeek())
	fmt.Printf("   File offset: %d\n", nav.FileOffset())
	fmt.Printf("   Entries:     %d\n", len(seqNums))
	if len(seqNums) > maxListedIndexEntries {
		seqNums = seqNums[:maxListedIndexEntries]
	}
	for _, seq := range seqNums {
		address, err := nav.AddressOf(seq)
		if err != nil {
			fatalf("Failed to resolve indexed LSN %d: %v", seq, err)
		}
		fmt.Printf("   %10d -> %d\n", seq, address)
	}
}

func printEntry(e *wal.Entry, showData bool) {
	fmt.Printf("   LSN %-10d term %-6d %6d bytes  crc %08x\n", e.LSN, e.Term, len(e.Data), e.Checksum)
	if showData {
		fmt.Printf("      %q\n", e.Data)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
	os.Exit(1)
}

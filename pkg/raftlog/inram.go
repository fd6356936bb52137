package raftlog

import (
	"sync"
)

// InRamLog is a RaftLog held entirely in memory.
type InRamLog struct {
	mu   sync.RWMutex
	logs map[string][]LogEntry
}

// NewInRamLog returns an empty in-memory log.
func NewInRamLog() *InRamLog {
	return &InRamLog{logs: make(map[string][]LogEntry)}
}

func (l *InRamLog) LogEntries(quorumID string, entries []LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.logs[quorumID]
	if err := checkContiguous(uint64(len(log)), entries); err != nil {
		return err
	}
	for _, e := range entries {
		e.Data = append([]byte(nil), e.Data...)
		log = append(log, e)
	}
	l.logs[quorumID] = log
	return nil
}

func (l *InRamLog) GetLogEntry(quorumID string, index uint64) (LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	log := l.logs[quorumID]
	if index == 0 || index > uint64(len(log)) {
		return LogEntry{}, outOfRange(index)
	}
	e := log[index-1]
	e.Data = append([]byte(nil), e.Data...)
	return e, nil
}

func (l *InRamLog) GetLogTerm(quorumID string, index uint64) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	log := l.logs[quorumID]
	if index == 0 || index > uint64(len(log)) {
		return 0, outOfRange(index)
	}
	return log[index-1].Term, nil
}

func (l *InRamLog) GetLastTerm(quorumID string) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	log := l.logs[quorumID]
	if len(log) == 0 {
		return 0, nil
	}
	return log[len(log)-1].Term, nil
}

func (l *InRamLog) GetLastIndex(quorumID string) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return uint64(len(l.logs[quorumID])), nil
}

func (l *InRamLog) TruncateLog(quorumID string, index uint64) error {
	if index == 0 {
		return outOfRange(index)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.logs[quorumID]
	if index > uint64(len(log)) {
		return nil
	}
	clear(log[index-1:])
	l.logs[quorumID] = log[:index-1]
	return nil
}

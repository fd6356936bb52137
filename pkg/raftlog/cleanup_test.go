package raftlog

import (
	"errors"
	"testing"

	"github.com/dd0wney/cluso-seqlog/pkg/logging"
)

type mockCloser struct {
	name       string
	order      *[]string
	closeErr   error
	closeCalls int
}

func (m *mockCloser) Close() error {
	m.closeCalls++
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	return m.closeErr
}

func TestResourceCleanup_ReverseOrder(t *testing.T) {
	cleanup := newResourceCleanup(logging.NewNopLogger())

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		cleanup.Add(&mockCloser{name: name, order: &order}, name)
	}
	if cleanup.Len() != 3 {
		t.Errorf("Expected 3 resources, got %d", cleanup.Len())
	}

	cleanup.Cleanup()

	expected := []string{"third", "second", "first"}
	if len(order) != len(expected) {
		t.Fatalf("Expected %d closes, got %d", len(expected), len(order))
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("Close %d: expected %s, got %s", i, expected[i], order[i])
		}
	}
	if cleanup.Len() != 0 {
		t.Errorf("Expected 0 resources after cleanup, got %d", cleanup.Len())
	}
}

func TestResourceCleanup_CloseAllReturnsFirstError(t *testing.T) {
	cleanup := newResourceCleanup(logging.NewNopLogger())

	errFirst := errors.New("first failure")
	errSecond := errors.New("second failure")
	a := &mockCloser{closeErr: errSecond}
	b := &mockCloser{}
	c := &mockCloser{closeErr: errFirst}
	cleanup.Add(a, "a")
	cleanup.Add(b, "b")
	cleanup.Add(c, "c")

	if err := cleanup.CloseAll(); !errors.Is(err, errFirst) {
		t.Errorf("Expected first error in close order, got %v", err)
	}
	if a.closeCalls != 1 || b.closeCalls != 1 || c.closeCalls != 1 {
		t.Error("Every resource should be closed exactly once despite errors")
	}

	// A second call has nothing left to close.
	if err := cleanup.CloseAll(); err != nil {
		t.Errorf("Expected nil on second CloseAll, got %v", err)
	}
	if a.closeCalls != 1 {
		t.Errorf("Resource closed twice")
	}
}

func TestResourceCleanup_Clear(t *testing.T) {
	cleanup := newResourceCleanup(logging.NewNopLogger())
	closer := &mockCloser{}
	cleanup.Add(closer, "kept")
	cleanup.Add(nil, "nil closer")

	cleanup.Clear()
	cleanup.Cleanup()

	if closer.closeCalls != 0 {
		t.Error("Cleared resource should not be closed")
	}
}

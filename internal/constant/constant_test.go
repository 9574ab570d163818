package constant

import (
	"errors"
	"sync"
	"testing"

	"github.com/polyvm/polyvm/internal/bytecode"
)

type fakeRunner struct {
	mu    sync.Mutex
	runs  int
	bytes []byte
	err   error
}

func (r *fakeRunner) RunToCompletion(chunk *bytecode.Chunk, resultSize uint32) ([]byte, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	return r.bytes, r.err
}

func TestPromoteCachesByKey(t *testing.T) {
	runner := &fakeRunner{bytes: []byte{1, 2, 3, 4}}
	e := NewEvaluator(runner, NewArena())
	chunk := bytecode.NewChunk()

	h1, err := e.Promote("k1", chunk, 4)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := e.Promote("k1", chunk, 4)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("expected the same handle for the same cache key")
	}
	if runner.runs != 1 {
		t.Fatalf("expected exactly one evaluation run, got %d", runner.runs)
	}
	if got := e.ArenaOf().Get(h1); string(got) != "\x01\x02\x03\x04" {
		t.Fatalf("unexpected arena contents: %v", got)
	}
}

func TestPromotePropagatesEvalError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	e := NewEvaluator(runner, NewArena())
	_, err := e.Promote("k", bytecode.NewChunk(), 4)
	if !errors.Is(err, ErrEvalFailed) {
		t.Fatalf("expected ErrEvalFailed, got %v", err)
	}
}

func TestDistinctKeysGetDistinctHandles(t *testing.T) {
	runner := &fakeRunner{bytes: []byte{9}}
	e := NewEvaluator(runner, NewArena())
	h1, _ := e.Promote("a", bytecode.NewChunk(), 1)
	h2, _ := e.Promote("b", bytecode.NewChunk(), 1)
	if h1 == h2 {
		t.Fatal("expected distinct cache keys to get distinct handles")
	}
}

package system

import (
	stdnet "net"
	"testing"
	"time"

	"github.com/timeweave/engine/internal/net"
	"go.uber.org/zap"
)

type fakeSource struct {
	newCh  chan *net.Session
	deadCh chan uint64
}

func newFakeSource() *fakeSource {
	return &fakeSource{newCh: make(chan *net.Session, 4), deadCh: make(chan uint64, 4)}
}

func (f *fakeSource) NewSessions() <-chan *net.Session { return f.newCh }
func (f *fakeSource) DeadSessions() <-chan uint64      { return f.deadCh }

type echoDispatcher struct {
	greeted []uint64
	lines   []string
}

func (d *echoDispatcher) Dispatch(sess *net.Session, line string) error {
	d.lines = append(d.lines, line)
	sess.Send("echo " + line)
	return nil
}

func (d *echoDispatcher) Greet(sess *net.Session) {
	d.greeted = append(d.greeted, sess.ID)
}

func pipeSession(t *testing.T, id uint64) *net.Session {
	t.Helper()
	a, b := stdnet.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return net.NewSession(a, id, net.SessionOptions{}, zap.NewNop())
}

func TestInputSystemAcceptsAndDispatches(t *testing.T) {
	src := newFakeSource()
	store := net.NewSessionStore()
	d := &echoDispatcher{}
	sys := NewInputSystem(src, store, d, 2, zap.NewNop())

	sess := pipeSession(t, 7)
	src.newCh <- sess
	sess.InQueue <- "one"
	sess.InQueue <- "two"
	sess.InQueue <- "three"

	sys.Update(50 * time.Millisecond)
	if store.Count() != 1 || len(d.greeted) != 1 || d.greeted[0] != 7 {
		t.Fatalf("store=%d greeted=%v", store.Count(), d.greeted)
	}
	if len(d.lines) != 2 {
		t.Fatalf("first tick dispatched %v, want 2 lines", d.lines)
	}
	if got := <-sess.OutQueue; got != "echo one" {
		t.Fatalf("flushed %q", got)
	}

	sys.Update(50 * time.Millisecond)
	if len(d.lines) != 3 || d.lines[2] != "three" {
		t.Fatalf("second tick dispatched %v", d.lines)
	}
}

func TestInputSystemDropsDeadSessions(t *testing.T) {
	src := newFakeSource()
	store := net.NewSessionStore()
	sys := NewInputSystem(src, store, &echoDispatcher{}, 4, zap.NewNop())

	a := pipeSession(t, 1)
	b := pipeSession(t, 2)
	src.newCh <- a
	src.newCh <- b
	sys.Update(0)
	if store.Count() != 2 {
		t.Fatalf("store = %d, want 2", store.Count())
	}

	src.deadCh <- 1
	b.Close()
	sys.Update(0)
	if store.Count() != 0 {
		t.Fatalf("store = %d after close, want 0", store.Count())
	}
}

func TestInputSystemIgnoresClosingSessions(t *testing.T) {
	src := newFakeSource()
	store := net.NewSessionStore()
	d := &echoDispatcher{}
	sys := NewInputSystem(src, store, d, 4, zap.NewNop())

	sess := pipeSession(t, 3)
	src.newCh <- sess
	sys.Update(0)

	sess.CloseAfterFlush()
	sess.InQueue <- "status"
	sys.Update(0)
	if len(d.lines) != 0 {
		t.Fatalf("closing session dispatched %v", d.lines)
	}
}

func TestOutputSystemFlushes(t *testing.T) {
	store := net.NewSessionStore()
	sess := pipeSession(t, 3)
	store.Add(sess)
	sess.Send("hello")

	NewOutputSystem(store).Update(0)
	select {
	case got := <-sess.OutQueue:
		if got != "hello" {
			t.Fatalf("flushed %q", got)
		}
	default:
		t.Fatal("nothing flushed")
	}
}

package net

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestReadLine(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("status\r\nslow 0.5\nlast"), 16)
	for _, want := range []string{"status", "slow 0.5", "last"} {
		got, err := ReadLine(r)
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != want {
			t.Fatalf("ReadLine = %q, want %q", got, want)
		}
	}
	if _, err := ReadLine(r); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReadLineTooLong(t *testing.T) {
	long := strings.Repeat("x", MaxLineLen+10) + "\n"
	r := bufio.NewReaderSize(strings.NewReader(long), 64)
	if _, err := ReadLine(r); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
}

func TestWriteLineFlattensNewlines(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLine(&buf, "a\nb"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a b\r\n" {
		t.Fatalf("wrote %q", buf.String())
	}
}

func TestSessionRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	dead := make(chan uint64, 1)
	s := NewSession(server, 7, SessionOptions{NeedAuth: true}, zap.NewNop())
	s.OnClose(func(id uint64) { dead <- id })
	s.Start()

	if s.State() != StateAwaitAuth {
		t.Fatalf("State = %v, want AwaitAuth", s.State())
	}

	go func() { _, _ = io.WriteString(client, "  status  \n\n") }()
	select {
	case line := <-s.InQueue:
		if line != "status" {
			t.Fatalf("InQueue line = %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
	}

	s.Send("ok")
	s.FlushOutput()
	cr := bufio.NewReader(client)
	got, err := cr.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok\r\n" {
		t.Fatalf("client read %q", got)
	}

	s.Close()
	select {
	case id := <-dead:
		if id != 7 {
			t.Fatalf("dead id = %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
	if !s.IsClosed() || s.State() != StateClosing {
		t.Fatalf("closed=%v state=%v", s.IsClosed(), s.State())
	}
	s.Send("ignored")
	if len(s.outBuf) != 0 {
		t.Fatal("Send after close should drop")
	}
}

func TestCloseAfterFlushDeliversPendingLines(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, 9, SessionOptions{NeedAuth: true}, zap.NewNop())
	s.Start()

	s.Send("denied")
	s.CloseAfterFlush()
	if s.State() != StateClosing || s.IsClosed() {
		t.Fatalf("state=%v closed=%v before flush", s.State(), s.IsClosed())
	}
	s.FlushOutput()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "denied\r\n" {
		t.Fatalf("client read %q", got)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !s.IsClosed() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !s.IsClosed() {
		t.Fatal("session still open after flush")
	}
}

func TestSessionStoreOrder(t *testing.T) {
	st := NewSessionStore()
	for _, id := range []uint64{3, 1, 2} {
		a, b := net.Pipe()
		defer a.Close()
		defer b.Close()
		st.Add(NewSession(a, id, SessionOptions{}, zap.NewNop()))
	}
	var seen []uint64
	st.Each(func(s *Session) { seen = append(seen, s.ID) })
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Fatalf("Each order = %v", seen)
	}
	if st.Remove(2) == nil || st.Count() != 2 || st.Get(2) != nil {
		t.Fatal("Remove failed")
	}
}

func TestCharset(t *testing.T) {
	enc, err := Charset("Big5")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := enc.NewEncoder().String("時間")
	if err != nil {
		t.Fatal(err)
	}
	if raw == "時間" {
		t.Fatal("Big5 encoding left UTF-8 bytes unchanged")
	}
	back, err := enc.NewDecoder().String(raw)
	if err != nil || back != "時間" {
		t.Fatalf("decode = %q, %v", back, err)
	}
	if _, err := Charset("ebcdic"); err == nil {
		t.Fatal("expected unsupported charset error")
	}
}

package net

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// SessionOptions sizes a session's queues and timeouts.
type SessionOptions struct {
	InQueueSize  int
	OutQueueSize int
	CmdPerSec    int           // 0 = unlimited
	WriteTimeout time.Duration // 0 = 10s
	IdleTimeout  time.Duration // 0 = none
	NeedAuth     bool
	Charset      encoding.Encoding // nil = UTF-8
}

// Session represents a single console connection. Network I/O runs in
// dedicated goroutines; engine state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32 // SessionState stored as int32

	InQueue  chan string // game loop reads command lines from here
	OutQueue chan string // writer goroutine reads from here

	IP string

	outBuf     []string // buffered lines, flushed by OutputSystem (game loop only)
	closeAfter bool     // close once outBuf is flushed (game loop only)

	lingerCh   chan struct{} // closed when the writer should drain and hang up
	lingerOnce sync.Once

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func(id uint64)

	// Per-second command rate limiter (readLoop goroutine only, no lock needed)
	cmdPerSec  int
	cmdCount   int
	cmdResetAt int64

	writeTimeout time.Duration
	idleTimeout  time.Duration
	charset      encoding.Encoding

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	if opts.InQueueSize <= 0 {
		opts.InQueueSize = 32
	}
	if opts.OutQueueSize <= 0 {
		opts.OutQueueSize = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Charset == nil {
		opts.Charset = unicode.UTF8
	}
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan string, opts.InQueueSize),
		OutQueue:     make(chan string, opts.OutQueueSize),
		IP:           conn.RemoteAddr().String(),
		closeCh:      make(chan struct{}),
		lingerCh:     make(chan struct{}),
		cmdPerSec:    opts.CmdPerSec,
		writeTimeout: opts.WriteTimeout,
		idleTimeout:  opts.IdleTimeout,
		charset:      opts.Charset,
		log:          log.With(zap.Uint64("session", id)),
	}
	if opts.NeedAuth {
		s.state.Store(int32(StateAwaitAuth))
	} else {
		s.state.Store(int32(StateReady))
	}
	return s
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) SetState(st SessionState) {
	s.state.Store(int32(st))
}

// OnClose registers a callback run once when the session closes.
// Must be set before Start.
func (s *Session) OnClose(fn func(id uint64)) { s.onClose = fn }

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a line for sending. The line is not written to TCP until
// FlushOutput is called by OutputSystem.
// Called only from the game loop goroutine, no lock needed on outBuf.
func (s *Session) Send(line string) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, line)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, line := range s.outBuf {
		select {
		case s.OutQueue <- line:
		default:
			s.log.Warn("output queue full, dropping slow console")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
	if s.closeAfter {
		s.lingerOnce.Do(func() { close(s.lingerCh) })
	}
}

// CloseAfterFlush marks the session closing and hangs up once the lines
// already sent reach the client. Called only from the game loop.
func (s *Session) CloseAfterFlush() {
	if s.closed.Load() {
		return
	}
	s.SetState(StateClosing)
	s.closeAfter = true
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(StateClosing)
		close(s.closeCh)
		s.conn.Close()
		if s.onClose != nil {
			s.onClose(s.ID)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine. It reads command lines from the TCP
// connection and pushes them onto InQueue for the game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	r := bufio.NewReaderSize(s.conn, MaxLineLen+2)
	dec := s.charset.NewDecoder()
	for {
		if s.idleTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		line, err := ReadLine(r)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if line, err = dec.String(line); err != nil {
			s.log.Debug("undecodable line", zap.Error(err))
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if s.cmdPerSec > 0 {
			now := time.Now().Unix()
			if now != s.cmdResetAt {
				s.cmdCount = 0
				s.cmdResetAt = now
			}
			s.cmdCount++
			if s.cmdCount > s.cmdPerSec {
				s.log.Warn("command rate exceeded, disconnecting", zap.Int("cps", s.cmdCount))
				return
			}
		}

		// Block until InQueue has space or session closes. Only this
		// client's reader waits.
		select {
		case s.InQueue <- line:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop runs in its own goroutine. It reads lines from OutQueue and
// writes them to the TCP connection.
func (s *Session) writeLoop() {
	defer s.Close()

	enc := s.charset.NewEncoder()
	for {
		select {
		case line := <-s.OutQueue:
			if !s.writeOne(enc, line) {
				return
			}
		case <-s.lingerCh:
			for {
				select {
				case line := <-s.OutQueue:
					if !s.writeOne(enc, line) {
						return
					}
				default:
					return
				}
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(enc *encoding.Encoder, line string) bool {
	if out, err := enc.String(line); err == nil {
		line = out
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := WriteLine(s.conn, line); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}

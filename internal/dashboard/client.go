package dashboard

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	gonet "github.com/timeweave/engine/internal/net"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Client is a line-oriented connection to the engine console.
type Client struct {
	conn  net.Conn
	enc   *encoding.Encoder
	lines chan string
	done  chan struct{}
	once  sync.Once
	wmu   sync.Mutex
	log   *zap.Logger
}

// Dial connects to a console at addr. cs nil means UTF-8.
func Dial(addr string, cs encoding.Encoding, log *zap.Logger) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial console %s: %w", addr, err)
	}
	return NewClient(conn, cs, log), nil
}

// NewClient wraps an established connection and starts its reader.
func NewClient(conn net.Conn, cs encoding.Encoding, log *zap.Logger) *Client {
	if cs == nil {
		cs = unicode.UTF8
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		conn:  conn,
		enc:   cs.NewEncoder(),
		lines: make(chan string, 256),
		done:  make(chan struct{}),
		log:   log,
	}
	go c.readLoop(cs.NewDecoder())
	return c
}

// Lines delivers reply and notice lines. Closed when the connection ends.
func (c *Client) Lines() <-chan string { return c.lines }

// Send writes one command line.
func (c *Client) Send(cmd string) error {
	out, err := c.enc.String(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return gonet.WriteLine(c.conn, out)
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) readLoop(dec *encoding.Decoder) {
	defer close(c.lines)
	r := bufio.NewReader(c.conn)
	for {
		line, err := gonet.ReadLine(r)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Debug("console read ended", zap.Error(err))
			}
			return
		}
		if s, err := dec.String(line); err == nil {
			line = s
		}
		select {
		case c.lines <- line:
		case <-c.done:
			return
		}
	}
}

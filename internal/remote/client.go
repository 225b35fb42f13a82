package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/protocol"
	"github.com/esimkit/esimctl/internal/version"
)

// ErrClosed is returned once the connection to esimd is gone.
var ErrClosed = errors.New("connection to esimd closed")

const handshakeTimeout = 10 * time.Second

// Options configures Dial.
type Options struct {
	// InsecureSkipVerify accepts any certificate from a wss:// daemon.
	InsecureSkipVerify bool
}

// Client is an lpa.Engine backed by an esimd daemon. Requests may be issued
// concurrently; replies are matched to requests by ID.
type Client struct {
	conn *protocol.Conn
	url  string

	mu      sync.Mutex
	pending map[string]chan *protocol.Message
	err     error

	done chan struct{}
}

var _ lpa.Engine = (*Client)(nil)

// Dial connects to the websocket URL of an esimd daemon.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	if opts.InsecureSkipVerify {
		logging.Warn("TLS certificate verification disabled", zap.String("url", url))
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user preference
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent("esimctl"))

	ws, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := &Client{
		conn:    protocol.NewConn(ws),
		url:     url,
		pending: make(map[string]chan *protocol.Message),
		done:    make(chan struct{}),
	}
	logging.LogConnection(c.conn.RemoteAddr(), "connected")

	go c.readLoop()
	return c, nil
}

// URL returns the daemon address the client dialled.
func (c *Client) URL() string {
	return c.url
}

func (c *Client) readLoop() {
	var err error
	defer func() {
		c.mu.Lock()
		if err == nil || protocol.IsClosed(err) {
			c.err = ErrClosed
		} else {
			c.err = fmt.Errorf("%w: %w", ErrClosed, err)
		}
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(c.done)
		logging.LogConnection(c.conn.RemoteAddr(), "disconnected")
	}()

	for {
		var msg *protocol.Message
		msg, err = c.conn.Receive()
		if errors.Is(err, protocol.ErrInvalidMessage) {
			logging.Warn("Ignoring malformed message from esimd", zap.Error(err))
			err = nil
			continue
		}
		if err != nil {
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		if ok {
			deliver(ch, msg)
		}
		c.mu.Unlock()

		if !ok {
			logging.Debug("Dropping unsolicited message",
				zap.String("id", msg.ID),
				zap.String("type", string(msg.Type)),
			)
		}
	}
}

// deliver keeps only the newest unread message. Replies to one-shot requests
// are single messages; for watches only the latest progress matters, except
// that a final event must never be displaced.
func deliver(ch chan *protocol.Message, msg *protocol.Message) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case old := <-ch:
		if old.Progress != nil && old.Progress.Done {
			ch <- old
			return
		}
	default:
	}
	ch <- msg
}

// register sends req and returns the channel its replies arrive on.
func (c *Client) register(req protocol.Message) (chan *protocol.Message, error) {
	ch := make(chan *protocol.Message, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err := c.conn.Send(req); err != nil {
		c.unregister(req.ID)
		return nil, err
	}
	return ch, nil
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

// call performs a one-shot request and returns its reply.
func (c *Client) call(ctx context.Context, req protocol.Message) (*protocol.Message, error) {
	ch, err := c.register(req)
	if err != nil {
		return nil, err
	}
	defer c.unregister(req.ID)

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, c.closedErr()
		}
		if err := msg.Err(); err != nil {
			return nil, err
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Slots lists the daemon's readers.
func (c *Client) Slots(ctx context.Context) ([]lpa.Slot, error) {
	reply, err := c.call(ctx, protocol.NewSlotsRequest())
	if err != nil {
		return nil, err
	}
	if reply.Type != protocol.TypeSlots {
		return nil, fmt.Errorf("unexpected %s reply to slots", reply.Type)
	}
	return reply.SlotList(), nil
}

// StartDownload asks the daemon to start req and returns the daemon's task ID.
func (c *Client) StartDownload(ctx context.Context, req lpa.DownloadRequest) (lpa.TaskID, error) {
	if err := req.Validate(); err != nil {
		return lpa.NoTask, err
	}
	reply, err := c.call(ctx, protocol.NewDownloadRequest(req))
	if err != nil {
		return lpa.NoTask, err
	}
	if reply.Type != protocol.TypeTask {
		return lpa.NoTask, fmt.Errorf("unexpected %s reply to download", reply.Type)
	}
	return lpa.TaskID(reply.TaskID), nil
}

// Watch follows a daemon task. The first reply decides: an error reply is
// returned as the error, otherwise events flow until the Done event, ctx is
// done or the connection drops.
func (c *Client) Watch(ctx context.Context, id lpa.TaskID) (<-chan lpa.Progress, error) {
	req := protocol.NewWatchRequest(id)
	ch, err := c.register(req)
	if err != nil {
		return nil, err
	}

	var first *protocol.Message
	select {
	case msg, ok := <-ch:
		if !ok {
			c.unregister(req.ID)
			return nil, c.closedErr()
		}
		if err := msg.Err(); err != nil {
			c.unregister(req.ID)
			return nil, err
		}
		first = msg
	case <-ctx.Done():
		c.unregister(req.ID)
		return nil, ctx.Err()
	}

	out := make(chan lpa.Progress, 1)
	go func() {
		defer close(out)
		defer c.unregister(req.ID)

		msg := first
		for {
			if msg.Type == protocol.TypeProgress {
				p := msg.ProgressValue()
				offer(out, p)
				if p.Done {
					return
				}
			}
			select {
			case next, ok := <-ch:
				if !ok {
					return
				}
				msg = next
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// offer replaces any unread event, keeping a Done event in place.
func offer(ch chan lpa.Progress, p lpa.Progress) {
	select {
	case ch <- p:
		return
	default:
	}
	select {
	case old := <-ch:
		if old.Done {
			ch <- old
			return
		}
	default:
	}
	ch <- p
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close disconnects and waits for the read loop to stop.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

package dspacex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Command names understood by the dSpaceX server
const (
	cmdFetchRegression = "fetchMorseSmaleRegression"
	cmdFetchExtrema    = "fetchMorseSmaleExtrema"
	cmdFetchCrystal    = "fetchCrystal"
	cmdEvalCrystal     = "fetchNImagesForCrystal"
)

// SessionHeader carries the client session id on the websocket handshake
const SessionHeader = "X-Dspacex-Session"

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used for connection events
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDialer replaces the websocket dialer
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// Client talks to the dSpaceX server over a single websocket. Requests carry
// an integer id that the server echoes back; any number of calls may be
// outstanding.
type Client struct {
	conn    *websocket.Conn
	dialer  *websocket.Dialer
	logger  *slog.Logger
	session string

	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   int
	pending  map[int]chan reply
	closeErr error

	done chan struct{}
}

type reply struct {
	data json.RawMessage
	err  error
}

// envelope is the part of every response used for routing
type envelope struct {
	ID       int    `json:"id"`
	Error    bool   `json:"error"`
	ErrorMsg string `json:"error_msg"`
}

// Dial connects to the server at url (ws:// or wss://)
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		dialer:  websocket.DefaultDialer,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		session: uuid.New().String(),
		pending: make(map[int]chan reply),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session", c.session)

	header := http.Header{}
	header.Set(SessionHeader, c.session)
	conn, _, err := c.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	c.conn = conn
	c.logger.Info("connected to dSpaceX server", "url", url)

	go c.readLoop()
	return c, nil
}

// Session returns the id sent on connect and attached to every log line
func (c *Client) Session() string {
	return c.session
}

// Done is closed once the connection is gone
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}

		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.logger.Warn("dropping undecodable message", "error", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		delete(c.pending, env.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("dropping response without caller", "id", env.ID)
			continue
		}

		if env.Error {
			ch <- reply{err: &ServerError{Message: env.ErrorMsg}}
			continue
		}
		ch <- reply{data: msg}
	}
}

// fail records the connection error and releases every waiting caller
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr == nil {
		c.closeErr = fmt.Errorf("%w: %v", ErrClosed, err)
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.logger.Warn("connection lost", "error", err)
		}
	}
	for id, ch := range c.pending {
		ch <- reply{err: c.closeErr}
		delete(c.pending, id)
	}
}

func (c *Client) call(ctx context.Context, name string, params map[string]any, out any) error {
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.closeErr != nil {
		err := c.closeErr
		c.mu.Unlock()
		return err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["name"] = name

	c.writeMu.Lock()
	err := c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("failed to send %s: %w", name, err)
	}

	select {
	case r := <-ch:
		if r.err != nil {
			if se, ok := r.err.(*ServerError); ok {
				se.Command = name
			}
			return r.err
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(r.data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", name, err)
		}
		return nil
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	}
}

func (c *Client) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close closes the connection; outstanding calls fail with ErrClosed
func (c *Client) Close() error {
	c.writeMu.Lock()
	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	cerr := c.conn.Close()
	<-c.done
	if err != nil && err != websocket.ErrCloseSent {
		return err
	}
	return cerr
}

func decompositionParams(q Query) map[string]any {
	return map[string]any{
		"datasetId":        q.DatasetID,
		"category":         q.Category,
		"fieldname":        q.Field,
		"k":                q.K,
		"persistenceLevel": q.PersistenceLevel,
	}
}

// FetchRegressionCurves fetches the crystal regression curves
func (c *Client) FetchRegressionCurves(ctx context.Context, q Query) (*RegressionCurves, error) {
	var out RegressionCurves
	if err := c.call(ctx, cmdFetchRegression, decompositionParams(q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchExtrema fetches the extrema of the decomposition
func (c *Client) FetchExtrema(ctx context.Context, q Query) (*Extrema, error) {
	var out Extrema
	if err := c.call(ctx, cmdFetchExtrema, decompositionParams(q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCrystalPartition fetches the sample ids belonging to a crystal
func (c *Client) FetchCrystalPartition(ctx context.Context, datasetID, persistenceLevel, crystal int) (*CrystalPartition, error) {
	var out CrystalPartition
	params := map[string]any{
		"datasetId":        datasetID,
		"persistenceLevel": persistenceLevel,
		"crystalID":        crystal,
	}
	if err := c.call(ctx, cmdFetchCrystal, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvalModelForCrystal evaluates the crystal's generative model
func (c *Client) EvalModelForCrystal(ctx context.Context, req EvalRequest) (*EvalResult, error) {
	var out EvalResult
	params := map[string]any{
		"datasetId":        req.DatasetID,
		"category":         req.Category,
		"fieldname":        req.Field,
		"persistenceLevel": req.PersistenceLevel,
		"crystalID":        req.Crystal,
		"numSamples":       req.SampleCount,
		"showOrig":         req.ShowOriginal,
		"validate":         req.Validate,
		"percent":          req.Percent,
	}
	if err := c.call(ctx, cmdEvalCrystal, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ Service = (*Client)(nil)

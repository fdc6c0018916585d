// Package driver runs the lifecycle of a single benchmark connection:
// establish, exchange the configured number of messages, tear down,
// reporting every timing and outcome to the shared aggregator.
package driver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/wsdrill/wsdrill/internal/config"
	"github.com/wsdrill/wsdrill/internal/metrics"
	"github.com/wsdrill/wsdrill/internal/tracing"
	"github.com/wsdrill/wsdrill/internal/wsclient"
)

// State is a connection's position in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateHandshaking
	StateOpen
	StateMessaging
	StateKeepalive
	StateClosing
	StateClosed
	StateFailed
)

// Establishing reports whether the state is inside the admission
// window bounded by the worker's concurrency ceiling.
func (s State) Establishing() bool {
	return s == StateConnecting || s == StateHandshaking
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateMessaging:
		return "messaging"
	case StateKeepalive:
		return "keepalive"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Driver owns one connection from dial to terminal state. A Driver is
// built, run once, and discarded; its only shared collaborator is the
// aggregator.
type Driver struct {
	id       int
	cfg      *config.Config
	agg      *metrics.Aggregator
	tracer   trace.Tracer
	headers  http.Header
	client   *wsclient.Client
	limiter  *rate.Limiter
	padding  []byte
	msgType  int
	state    atomicState
	settleFn func()

	settleOnce sync.Once
	failOnce   sync.Once
	failErr    error
}

// New builds a driver for one connection. onSettled is invoked exactly
// once, at the moment the connection leaves the establishment window
// (reaches open or fails); workers use it to admit the next connection.
func New(id int, cfg *config.Config, agg *metrics.Aggregator, tracer trace.Tracer, onSettled func()) *Driver {
	headers := make(http.Header, len(cfg.Headers))
	for key, value := range cfg.Headers {
		headers.Set(key, value)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.MessageInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MessageInterval), 1)
	}

	msgType := websocket.TextMessage
	if cfg.Masked {
		msgType = websocket.BinaryMessage
	}

	padding := make([]byte, cfg.PayloadSize)
	for i := range padding {
		padding[i] = 'x'
	}

	return &Driver{
		id:       id,
		cfg:      cfg,
		agg:      agg,
		tracer:   tracer,
		headers:  headers,
		limiter:  limiter,
		padding:  padding,
		msgType:  msgType,
		settleFn: onSettled,
	}
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	return d.state.load()
}

// Run executes the full connection lifecycle. The returned error is the
// terminal failure, already reported to the aggregator; nil means the
// connection closed cleanly. A failure never aborts sibling
// connections and is never retried.
func (d *Driver) Run(ctx context.Context) error {
	ctx, span := tracing.StartConnectionSpan(ctx, d.tracer, d.cfg.Target, d.id)
	defer d.settle()

	tracing.InjectHandshakeHeaders(ctx, d.headers)

	d.client = wsclient.NewClient(wsclient.Config{
		URL:              d.cfg.Target,
		Headers:          d.headers,
		HandshakeTimeout: d.cfg.HandshakeTimeout,
		ReceiveTimeout:   d.cfg.ReceiveTimeout,
	})

	d.state.store(StateConnecting)
	handshakeStart := time.Now()
	d.state.store(StateHandshaking)
	if err := d.client.Connect(ctx); err != nil {
		err = d.fail(err)
		tracing.EndSpan(span, err)
		return err
	}
	d.agg.Handshaken(time.Since(handshakeStart))
	d.state.store(StateOpen)
	d.settle()

	stopKeepalive := d.startKeepalive(ctx)

	for i := 0; i < d.cfg.Messages; i++ {
		// Between messages the connection is open and idle; it reads
		// as keepalive only while a ping cadence is actually running.
		if i > 0 && d.cfg.MessageInterval > 0 {
			if d.cfg.KeepAlive > 0 {
				d.state.store(StateKeepalive)
			} else {
				d.state.store(StateOpen)
			}
		}
		if err := d.limiter.Wait(ctx); err != nil {
			stopKeepalive()
			err = d.fail(err)
			tracing.EndSpan(span, err)
			return err
		}
		d.state.store(StateMessaging)
		if err := d.roundTrip(); err != nil {
			stopKeepalive()
			err = d.fail(err)
			tracing.EndSpan(span, err)
			return err
		}
	}

	stopKeepalive()

	d.state.store(StateClosing)
	bytesRead, bytesSent := d.client.BytesRead(), d.client.BytesSent()
	if err := d.client.Close(); err != nil {
		err = d.fail(err)
		tracing.EndSpan(span, err)
		return err
	}
	d.agg.Close(bytesRead, bytesSent)
	d.state.store(StateClosed)
	tracing.EndSpan(span, nil)
	return nil
}

// roundTrip sends one correlated message and blocks until its echo
// arrives. Only one message is ever outstanding per connection, so a
// token match is unambiguous.
func (d *Driver) roundTrip() error {
	token := ulid.Make().String()
	payload := buildPayload(token, d.padding)

	sentAt := time.Now()
	if err := d.client.Send(wsclient.Message{Type: d.msgType, Data: payload}); err != nil {
		return err
	}

	for {
		msg, err := d.client.Receive()
		if err != nil {
			return err
		}
		// Frames without our token are server chatter, not a response.
		if gjson.GetBytes(msg.Data, "token").Str == token {
			d.agg.Message(time.Since(sentAt))
			return nil
		}
	}
}

// startKeepalive launches the periodic ping loop when configured. The
// returned stop function halts the loop and waits for it to exit; it
// must be called before the driver closes the connection so a late
// ping is never mistaken for a transport failure.
func (d *Driver) startKeepalive(ctx context.Context) (stop func()) {
	if d.cfg.KeepAlive <= 0 {
		return func() {}
	}

	kaCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(d.cfg.KeepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-kaCtx.Done():
				return
			case <-ticker.C:
				if err := d.client.Ping(); err != nil {
					// fail closes the connection, which also unblocks
					// the message loop's pending read.
					d.fail(err)
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// fail records the terminal failure exactly once, regardless of how
// many paths observe errors afterwards, and returns the first error.
// It closes the connection so no failed driver holds its socket for
// the rest of the run and any blocked read unblocks.
func (d *Driver) fail(err error) error {
	d.failOnce.Do(func() {
		d.failErr = err
		d.state.store(StateFailed)
		d.agg.Error(err)
		if d.client != nil {
			_ = d.client.Close()
		}
	})
	d.settle()
	return d.failErr
}

func (d *Driver) settle() {
	d.settleOnce.Do(func() {
		if d.settleFn != nil {
			d.settleFn()
		}
	})
}

// buildPayload assembles the JSON envelope carrying the correlation
// token and the configured padding.
func buildPayload(token string, padding []byte) []byte {
	payload := make([]byte, 0, len(token)+len(padding)+24)
	payload = append(payload, `{"token":"`...)
	payload = append(payload, token...)
	payload = append(payload, `","data":"`...)
	payload = append(payload, padding...)
	payload = append(payload, `"}`...)
	return payload
}

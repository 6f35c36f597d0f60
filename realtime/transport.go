// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nestzone/nestwatch/record"
)

// Timeout budgets. Connection readiness and session-id acquisition are
// bounded polls, never unbounded waits.
const (
	connectTimeout = 30 * time.Second
	sessionTimeout = 10 * time.Second
	pollInterval   = 200 * time.Millisecond

	handshakeEvent = "PB_CONNECT"
)

var (
	// ErrConnectionFailed means the streaming request never produced a
	// successful response within the connect budget.
	ErrConnectionFailed = errors.New("realtime: connection failed")

	// ErrNotConnected means no session identifier was obtained in time.
	ErrNotConnected = errors.New("realtime: no session established")

	// ErrSubscriptionFailed means the server rejected the subscription
	// push even after one reconnect-and-retry.
	ErrSubscriptionFailed = errors.New("realtime: subscription update rejected")

	errSessionExpired = errors.New("realtime: session identifier expired")
)

// Action is the record change kind carried by an event.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is one record change, decoded once at the transport boundary.
// Subscribers build their own typed projections from Record.
type Event struct {
	Action Action
	Record record.Record
}

// Callback receives every event whose payload matches the subscribed topic.
type Callback func(Event)

// Topic builds a compound topic matching a single record.
func Topic(collection, recordID string) string {
	return collection + "/" + recordID
}

// Transport maintains one long-lived streaming connection to the server's
// realtime endpoint, parses the event protocol, and dispatches matching
// events to registered topic callbacks.
//
// All mutable state (session id, subscription map, connection flags) is
// owned by the transport's mutex; callbacks run outside the lock.
type Transport struct {
	endpoint string
	postc    *http.Client // subscription pushes
	streamc  *http.Client // event stream, no client timeout
	logger   *slog.Logger

	mu         sync.Mutex
	connected  bool
	connectErr error
	clientID   string
	cancel     context.CancelFunc
	subs       map[string]Callback
	fkHints    map[string]string
}

type TransportOption func(*Transport)

// WithHTTPClient sets the client used for subscription pushes. The stream
// request reuses its transport but never its timeout.
func WithHTTPClient(h *http.Client) TransportOption {
	return func(t *Transport) { t.postc = h }
}

// WithLogger sets the transport logger.
func WithLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) { t.logger = l }
}

// WithForeignKeyHint registers a field whose presence on an event record
// implies membership in collection, for topic matching when the record
// carries no collection metadata.
func WithForeignKeyHint(collection, field string) TransportOption {
	return func(t *Transport) { t.fkHints[collection] = field }
}

// NewTransport creates a disconnected transport for the server at baseURL.
func NewTransport(baseURL string, opts ...TransportOption) *Transport {
	t := &Transport{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/realtime",
		logger:   slog.Default(),
		subs:     make(map[string]Callback),
		fkHints: map[string]string{
			"messages":   "conversation_id",
			"votes":      "poll_id",
			"poll_items": "poll_id",
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.postc == nil {
		t.postc = &http.Client{Timeout: 15 * time.Second}
	}
	t.streamc = &http.Client{Transport: t.postc.Transport}
	return t
}

// Connected reports whether the stream is currently up.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// ClientID returns the session identifier from the last handshake, or "".
func (t *Transport) ClientID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clientID
}

// Connect opens the streaming request and waits, polling, until a
// successful response arrives or the connect budget runs out. No-op when
// already connected. The session identifier arrives asynchronously on the
// stream; subscription calls wait for it separately.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return nil
	}
	if t.cancel != nil {
		t.cancel()
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.connectErr = nil
	t.mu.Unlock()

	go t.stream(streamCtx)

	deadline := time.Now().Add(connectTimeout)
	for {
		t.mu.Lock()
		connected, failure := t.connected, t.connectErr
		t.mu.Unlock()

		if connected {
			return nil
		}
		if failure != nil {
			return fmt.Errorf("%w: %v", ErrConnectionFailed, failure)
		}
		if time.Now().After(deadline) {
			cancel()
			return fmt.Errorf("%w: no response within %s", ErrConnectionFailed, connectTimeout)
		}

		select {
		case <-ctx.Done():
			cancel()
			return fmt.Errorf("%w: %v", ErrConnectionFailed, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// Subscribe registers cb for every subsequent event matching topic, then
// declares the full current topic set to the server. Connects first when
// needed.
func (t *Transport) Subscribe(ctx context.Context, topic string, cb Callback) error {
	if err := t.Connect(ctx); err != nil {
		return err
	}
	if err := t.waitForSession(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	t.subs[topic] = cb
	t.mu.Unlock()

	return t.pushWithRecovery(ctx)
}

// Unsubscribe drops the topic locally, then best-effort notifies the
// server. Local state is authoritative for delivery, so a failed push is
// logged, not returned.
func (t *Transport) Unsubscribe(ctx context.Context, topic string) {
	t.mu.Lock()
	delete(t.subs, topic)
	hasSession := t.clientID != ""
	t.mu.Unlock()

	if !hasSession {
		return
	}
	if err := t.pushSubscriptions(ctx); err != nil {
		t.logger.Warn("failed to push subscription removal", "topic", topic, "error", err)
	}
}

// Disconnect tears down the stream but keeps registered topics, so a later
// Connect re-subscribes everything without caller involvement.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.connected = false
	t.clientID = ""
}

// ClearAllSubscriptions drops every topic and callback and disconnects.
func (t *Transport) ClearAllSubscriptions() {
	t.mu.Lock()
	t.subs = make(map[string]Callback)
	t.mu.Unlock()
	t.Disconnect()
}

// waitForSession polls for the handshake session identifier.
func (t *Transport) waitForSession(ctx context.Context) error {
	deadline := time.Now().Add(sessionTimeout)
	for {
		t.mu.Lock()
		id := t.clientID
		t.mu.Unlock()
		if id != "" {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrNotConnected
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNotConnected, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// pushWithRecovery pushes the topic set; on a session-expired rejection it
// reconnects and retries exactly once.
func (t *Transport) pushWithRecovery(ctx context.Context) error {
	err := t.pushSubscriptions(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errSessionExpired) {
		return fmt.Errorf("%w: %v", ErrSubscriptionFailed, err)
	}

	t.logger.Info("realtime session expired, reconnecting")
	t.Disconnect()
	if err := t.Connect(ctx); err != nil {
		return err
	}
	if err := t.waitForSession(ctx); err != nil {
		return err
	}
	if err := t.pushSubscriptions(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSubscriptionFailed, err)
	}
	return nil
}

// pushSubscriptions declares the full current topic set, associated with
// the session identifier. Not incremental.
func (t *Transport) pushSubscriptions(ctx context.Context) error {
	t.mu.Lock()
	clientID := t.clientID
	topics := make([]string, 0, len(t.subs))
	for topic := range t.subs {
		topics = append(topics, topic)
	}
	t.mu.Unlock()

	if clientID == "" {
		return ErrNotConnected
	}
	sort.Strings(topics)

	payload, err := json.Marshal(struct {
		ClientID      string   `json:"clientId"`
		Subscriptions []string `json:"subscriptions"`
	}{ClientID: clientID, Subscriptions: topics})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.postc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errSessionExpired
	case resp.StatusCode >= 300:
		return fmt.Errorf("subscription push status %d", resp.StatusCode)
	}
	return nil
}

// stream runs the long-lived request and feeds the parser until the
// connection drops or is cancelled.
func (t *Transport) stream(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		t.failConnect(err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.streamc.Do(req)
	if err != nil {
		t.failConnect(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.failConnect(fmt.Errorf("handshake status %d", resp.StatusCode))
		return
	}

	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	t.logger.Info("realtime stream connected")

	var p parser
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			for _, f := range p.feed(buf[:n]) {
				t.handleFrame(f)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled on purpose. A replacement stream may already own
				// the connection state; it is not ours to clear anymore.
				return
			}
			t.logger.Warn("realtime stream closed", "error", err)
			t.mu.Lock()
			t.connected = false
			t.clientID = ""
			t.mu.Unlock()
			return
		}
	}
}

func (t *Transport) failConnect(err error) {
	t.mu.Lock()
	t.connectErr = err
	t.connected = false
	t.mu.Unlock()
}

// handleFrame routes one parsed frame: handshake, heartbeat, or record
// change. Malformed payloads are discarded.
func (t *Transport) handleFrame(f frame) {
	data := strings.TrimSpace(f.data)
	if data == "" {
		// heartbeat
		return
	}

	if f.event == handshakeEvent {
		var hs struct {
			ClientID string `json:"clientId"`
		}
		if err := json.Unmarshal([]byte(data), &hs); err != nil || hs.ClientID == "" {
			t.logger.Warn("malformed handshake event", "error", err)
			return
		}

		t.mu.Lock()
		t.clientID = hs.ClientID
		resubscribe := len(t.subs) > 0
		t.mu.Unlock()

		t.logger.Info("realtime session established", "client_id", hs.ClientID)
		if resubscribe {
			if err := t.pushSubscriptions(context.Background()); err != nil {
				t.logger.Warn("failed to re-subscribe after handshake", "error", err)
			}
		}
		return
	}

	var payload struct {
		Action string        `json:"action"`
		Record record.Record `json:"record"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.logger.Debug("discarding unparseable event", "event", f.event, "error", err)
		return
	}
	if payload.Action == "" || payload.Record == nil {
		t.logger.Debug("discarding event without action/record", "event", f.event)
		return
	}

	t.dispatch(Event{Action: Action(payload.Action), Record: payload.Record})
}

// dispatch checks every registered topic independently; multiple callbacks
// may fire for one event.
func (t *Transport) dispatch(ev Event) {
	type delivery struct {
		topic string
		cb    Callback
	}
	t.mu.Lock()
	var matched []delivery
	for topic, cb := range t.subs {
		if t.topicMatches(topic, ev.Record) {
			matched = append(matched, delivery{topic, cb})
		}
	}
	t.mu.Unlock()

	for _, d := range matched {
		d.cb(ev)
	}
}

// topicMatches applies the routing rule: a bare collection topic matches
// any record naming that collection or carrying its foreign-key hint
// field; a collection/recordId topic additionally requires the exact id.
func (t *Transport) topicMatches(topic string, rec record.Record) bool {
	if col, id, ok := strings.Cut(topic, "/"); ok {
		return rec.ID() == id && t.collectionMatches(col, rec)
	}
	return t.collectionMatches(topic, rec)
}

func (t *Transport) collectionMatches(collection string, rec record.Record) bool {
	if rec.Collection() == collection {
		return true
	}
	fk, ok := t.fkHints[collection]
	return ok && rec.Has(fk)
}

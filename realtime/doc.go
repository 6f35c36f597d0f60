// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime delivers near-real-time record change notifications over a
single persistent streaming connection.

# Wire Protocol

The server streams UTF-8 text blocks terminated by a blank line, each
holding any subset of event:, data:, and id: lines. The first meaningful
event is a PB_CONNECT handshake carrying {"clientId": "..."}; the session
identifier it delivers is required for all subscription management. Record
change events carry {"action": "create"|"update"|"delete", "record": {...}}.
Blocks with empty data are heartbeats and are dropped.

Subscription changes are pushed as a POST of the full current topic set:

	{"clientId": "...", "subscriptions": ["messages", "polls/abc123"]}

A 204 means success; a 404 means the session identifier expired, in which
case the transport reconnects and retries the push exactly once.

# Topics

A bare collection name matches every event for that collection, either by
the record's collection metadata or by a registered foreign-key hint field.
A collection/recordId topic matches only that record. Each registered topic
is checked independently per event.

# Failure Semantics

Connect and Subscribe fail loudly (ErrConnectionFailed, ErrNotConnected,
ErrSubscriptionFailed). A mid-stream error marks the transport disconnected
and clears the session identifier but keeps every registered topic, so a
caller-driven reconnect restores delivery without re-registering.
*/
package realtime

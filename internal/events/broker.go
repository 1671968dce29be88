// Package events pushes session updates to clients over Server-Sent Events.
// Each editor session has its own stream, named by the session id.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/r3labs/sse/v2"
)

// ErrDropped is returned when a stream's buffer is full and the event was discarded.
var ErrDropped = errors.New("event dropped: stream buffer full")

// writeTimeout bounds each write to a subscriber, so a client that stops
// reading is cut off instead of holding its stream.
const writeTimeout = 10 * time.Second

// Event types sent on a session stream.
const (
	TypeState   = "state"
	TypeCommand = "command"
	TypeNotice  = "notice"
)

type Publisher interface {
	Open(stream string)
	Close(stream string)
	Publish(stream, eventType string, payload interface{}) error
}

type Broker struct {
	server *sse.Server
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	server := sse.New()
	server.AutoReplay = false
	server.AutoStream = false
	return &Broker{server: server, logger: logger}
}

func (b *Broker) Open(stream string) {
	if !b.server.StreamExists(stream) {
		b.server.CreateStream(stream)
	}
}

func (b *Broker) Close(stream string) {
	b.server.RemoveStream(stream)
}

func (b *Broker) Publish(stream, eventType string, payload interface{}) error {
	if !b.server.StreamExists(stream) {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	// never block the publisher on a slow subscriber
	if !b.server.TryPublish(stream, &sse.Event{Event: []byte(eventType), Data: data}) {
		if !b.server.StreamExists(stream) {
			return nil
		}
		return fmt.Errorf("%s on %s: %w", eventType, stream, ErrDropped)
	}
	return nil
}

// ServeHTTP subscribes the caller to the stream named by the "stream" query parameter.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.server.ServeHTTP(&deadlineWriter{ResponseWriter: w, rc: http.NewResponseController(w)}, r)
}

func (b *Broker) Shutdown() {
	b.logger.Info("closing event streams")
	b.server.Close()
}

type deadlineWriter struct {
	http.ResponseWriter
	rc *http.ResponseController
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	// writers without deadline support just block
	_ = w.rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.ResponseWriter.Write(p)
}

func (w *deadlineWriter) Flush() {
	_ = w.rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = w.rc.Flush()
}

func (w *deadlineWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

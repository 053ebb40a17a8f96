/*
Package ekfweb publishes orientation estimates: a websocket Room that
broadcasts every message it receives to all connected clients, a Publisher
that feeds a Room from a sim.Runner, and an MQTT publisher.

The room and client are adapted from Mat Ryer's Go Blueprints examples,
see https://github.com/matryer/goblueprints
*/
package ekfweb

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/babetCode/IMU-gait-analysis/logging"
	"github.com/babetCode/IMU-gait-analysis/sim"
)

// Room relays messages between websocket clients.
type Room struct {
	// forward is a channel that holds incoming messages
	// that should be forwarded to the other clients.
	forward chan []byte
	// join is a channel for clients wishing to join the room.
	join chan *client
	// leave is a channel for clients wishing to leave the room.
	leave chan *client
	// clients holds all current clients in this room.
	clients map[*client]bool
	// done is closed when Run returns.
	done chan struct{}

	count  atomic.Int32
	logger *zap.SugaredLogger
}

// NewRoom makes a new room that is ready to go.
func NewRoom(logger *zap.SugaredLogger) *Room {
	return &Room{
		forward: make(chan []byte),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
		done:    make(chan struct{}),
		logger:  logging.OrNop(logger),
	}
}

// Run relays messages until ctx is done, then disconnects every client.
func (r *Room) Run(ctx context.Context) {
	defer func() {
		for c := range r.clients {
			delete(r.clients, c)
			close(c.send)
		}
		r.count.Store(0)
		close(r.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-r.join:
			// joining
			r.clients[c] = true
			r.count.Store(int32(len(r.clients)))
			r.logger.Debugw("new client joined", "clients", len(r.clients))
		case c := <-r.leave:
			// leaving
			if r.clients[c] {
				delete(r.clients, c)
				close(c.send)
			}
			r.count.Store(int32(len(r.clients)))
			r.logger.Debugw("client left", "clients", len(r.clients))
		case msg := <-r.forward:
			// forward message to all clients
			for c := range r.clients {
				select {
				case c.send <- msg:
				default:
					r.logger.Warn("client buffer full, dropping message")
				}
			}
		}
	}
}

// Clients returns the number of connected clients.
func (r *Room) Clients() int {
	return int(r.count.Load())
}

// Broadcast sends msg to every client. It fails once the room has stopped.
func (r *Room) Broadcast(msg []byte) error {
	select {
	case r.forward <- msg:
		return nil
	case <-r.done:
		return errors.New("ekfweb: room is closed")
	}
}

// Consume broadcasts a snapshot, so a Room can serve a sim.Runner in process.
func (r *Room) Consume(s sim.Snapshot) error {
	msg, err := json.Marshal(NewOrientationData(s))
	if err != nil {
		return errors.Wrap(err, "ekfweb: marshalling orientation")
	}
	return r.Broadcast(msg)
}

const (
	socketBufferSize  = 1024
	messageBufferSize = 64
)

var upgrader = &websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		room:   r,
	}
	select {
	case r.join <- c:
	case <-r.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- c:
		case <-r.done:
		}
	}()
	go c.write()
	c.read()
}

package client

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain"
	"github.com/hirewise/server/domain/entities"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 256
)

// ErrPublisherClosed is returned by Send after Close
var ErrPublisherClosed = errors.New("live publisher closed")

// LivePublisher streams transcript lines and state changes to the server's
// session room so viewers can follow along.
type LivePublisher struct {
	conn   *websocket.Conn
	send   chan interface{}
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// LiveURL builds the websocket address of a session room from the HTTP base
// URL of the server.
func LiveURL(baseURL, sessionID, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/interviews/" + url.PathEscape(sessionID)
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// DialLive connects to the session room as its publisher
func DialLive(baseURL, sessionID, token string, logger *zap.Logger) (*LivePublisher, error) {
	wsURL, err := LiveURL(baseURL, sessionID, token)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}

	p := &LivePublisher{
		conn:   conn,
		send:   make(chan interface{}, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	p.wg.Add(2)
	go p.writePump()
	go p.readPump()

	logger.Info("Live transcript connected", zap.String("session_id", sessionID))
	return p, nil
}

// SendLine queues a transcript line
func (p *LivePublisher) SendLine(line entities.TranscriptItem) error {
	return p.enqueue(domain.TranscriptLineMessage{
		Type: domain.MessageTypeTranscriptLine,
		Line: line,
	})
}

// SendState queues a connection state change
func (p *LivePublisher) SendState(state string) error {
	return p.enqueue(domain.StateChangeMessage{
		Type:  domain.MessageTypeStateChange,
		State: state,
	})
}

func (p *LivePublisher) enqueue(msg interface{}) error {
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.send <- msg:
		return nil
	case <-p.done:
		return ErrPublisherClosed
	default:
		p.logger.Warn("Live transcript buffer full, dropping message")
		return nil
	}
}

// Close flushes queued messages and closes the connection
func (p *LivePublisher) Close() error {
	p.once.Do(func() { close(p.done) })
	// bound the wait for the server's close reply
	p.conn.SetReadDeadline(time.Now().Add(writeWait))
	p.wg.Wait()
	return p.conn.Close()
}

func (p *LivePublisher) writePump() {
	defer p.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-p.send:
			if err := p.write(msg); err != nil {
				p.logger.Warn("Live transcript write failed", zap.Error(err))
				p.once.Do(func() { close(p.done) })
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			p.drain()
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			p.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (p *LivePublisher) drain() {
	for {
		select {
		case msg := <-p.send:
			if err := p.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (p *LivePublisher) write(msg interface{}) error {
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(msg)
}

// readPump logs server errors and notices when the server goes away
func (p *LivePublisher) readPump() {
	defer p.wg.Done()
	for {
		var msg struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if err := p.conn.ReadJSON(&msg); err != nil {
			select {
			case <-p.done:
			default:
				p.logger.Warn("Live transcript connection lost", zap.Error(err))
				p.once.Do(func() { close(p.done) })
			}
			return
		}
		if msg.Type == domain.MessageTypeError {
			p.logger.Warn("Live transcript rejected a message", zap.String("message", msg.Message))
		}
	}
}

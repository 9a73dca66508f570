package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Recognizer starts streaming recognition sessions.
type Recognizer interface {
	Start(ctx context.Context, cfg StreamConfig) (Session, error)
}

// Session is one active recognition stream.
type Session interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan Event
	Wait() error
	Close() error
}

// GatewayConfig locates the recognition gateway.
type GatewayConfig struct {
	URL   string // base URL, e.g. ws://127.0.0.1:7700
	Token string // optional bearer token
}

// Gateway implements Recognizer against the voxkey recognition gateway:
// binary PCM frames up, JSON transcript/error events down.
type Gateway struct {
	cfg GatewayConfig
}

// NewGateway creates a gateway client with defaults applied.
func NewGateway(cfg GatewayConfig) *Gateway {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = "ws://127.0.0.1:7700"
	}
	return &Gateway{cfg: cfg}
}

// Start dials the listen endpoint and begins the stream loops.
func (g *Gateway) Start(ctx context.Context, cfg StreamConfig) (Session, error) {
	listenURL, err := buildListenURL(g.cfg.URL, cfg)
	if err != nil {
		return nil, err
	}

	headers := map[string][]string{}
	if g.cfg.Token != "" {
		headers["Authorization"] = []string{"Bearer " + g.cfg.Token}
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, listenURL, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, &Failure{Code: FailureServiceUnavailable, Detail: err.Error()}
	}

	session := &gatewaySession{
		conn:     conn,
		events:   make(chan Event, 64),
		audio:    make(chan []byte, 32),
		sendDone: make(chan struct{}),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

// buildListenURL encodes the stream configuration as listen query params.
func buildListenURL(base string, cfg StreamConfig) (string, error) {
	parsed, err := url.Parse(strings.TrimRight(base, "/") + "/v1/listen")
	if err != nil {
		return "", fmt.Errorf("parse gateway url %q: %w", base, err)
	}
	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", parsed.Scheme)
	}

	query := parsed.Query()
	query.Set("language", cfg.Language)
	query.Set("interim", strconv.FormatBool(cfg.InterimResults))
	query.Set("continuous", strconv.FormatBool(cfg.Continuous))
	if cfg.MaxAlternatives > 0 {
		query.Set("alternatives", strconv.Itoa(cfg.MaxAlternatives))
	}
	if cfg.SampleRate > 0 {
		query.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

type gatewaySession struct {
	conn *websocket.Conn

	events   chan Event
	audio    chan []byte
	sendDone chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
}

func (s *gatewaySession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	select {
	case <-s.sendDone:
		return errors.New("audio stream is already closed")
	default:
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.sendDone:
		return errors.New("audio stream is already closed")
	case <-s.done:
		if err := s.sessionErr(); err != nil {
			return err
		}
		return errors.New("session closed")
	}
}

// CloseSend stops accepting audio and asks the write loop to flush queued
// chunks and emit the close sentinel. The audio channel is never closed, so
// a sender racing with shutdown gets an error instead of a panic.
func (s *gatewaySession) CloseSend() error {
	s.closeSendOnce.Do(func() { close(s.sendDone) })
	return nil
}

func (s *gatewaySession) Events() <-chan Event {
	return s.events
}

func (s *gatewaySession) Wait() error {
	<-s.done
	return s.sessionErr()
}

func (s *gatewaySession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.sessionErr()
}

func (s *gatewaySession) sessionErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *gatewaySession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *gatewaySession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(&Failure{Code: FailureNetwork, Detail: err.Error()})
				return
			}
		case <-s.sendDone:
			s.flushAndCloseStream()
			return
		}
	}
}

// flushAndCloseStream drains audio that was queued before CloseSend, then
// tells the gateway the stream is complete.
func (s *gatewaySession) flushAndCloseStream() {
	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(&Failure{Code: FailureNetwork, Detail: err.Error()})
				return
			}
		default:
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
				s.setErr(&Failure{Code: FailureNetwork, Detail: err.Error()})
			}
			return
		}
	}
}

// gatewayMessage is the downstream wire shape.
type gatewayMessage struct {
	Type         string        `json:"type"`
	Final        bool          `json:"final"`
	Alternatives []Alternative `json:"alternatives"`
	Code         string        `json:"code"`
	Detail       string        `json:"detail"`
}

func (s *gatewaySession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(err)
			return
		}

		var msg gatewayMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			// Unknown payloads are skipped, not fatal.
			continue
		}

		switch msg.Type {
		case "transcript":
			if len(msg.Alternatives) == 0 {
				continue
			}
			select {
			case s.events <- Event{Final: msg.Final, Alternatives: msg.Alternatives}:
			case <-s.done:
				return
			}
		case "error":
			s.setErr(&Failure{Code: failureCode(msg.Code), Detail: msg.Detail})
			return
		case "done":
			return
		}
	}
}

// failureCode maps wire codes onto the closed vocabulary.
func failureCode(code string) FailureCode {
	switch FailureCode(code) {
	case FailureNoSpeech, FailureAudioUnavailable, FailurePermissionDenied,
		FailureNetwork, FailureServiceUnavailable:
		return FailureCode(code)
	default:
		return FailureServiceUnavailable
	}
}

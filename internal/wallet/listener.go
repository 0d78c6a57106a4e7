package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/session_layer/pkg/logger"
)

// hubEvent is one message from the external connector hub.
type hubEvent struct {
	Type        string `json:"type"` // "connect" or "disconnect"
	ConnectorID string `json:"connector_id"`
	Address     string `json:"address,omitempty"`
}

// HubListener subscribes to the external connector hub over websocket and
// translates connector events into connection signal updates. This is the
// channel through which standalone-mode deployments ever see a wallet address.
type HubListener struct {
	mu     sync.Mutex
	url    string
	apiKey string
	signal *Signal
	log    *logger.Logger
	conn   *websocket.Conn
	done   chan struct{}
}

// NewHubListener creates a listener for the given hub websocket URL.
func NewHubListener(hubURL, apiKey string, signal *Signal, log *logger.Logger) *HubListener {
	// Accept http(s) URLs and rewrite to the websocket scheme.
	wsURL := hubURL
	if strings.HasPrefix(wsURL, "https") {
		wsURL = "wss" + wsURL[5:]
	} else if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + wsURL[4:]
	}

	if log == nil {
		log = logger.New(logger.LoggingConfig{})
	}
	return &HubListener{
		url:    wsURL,
		apiKey: apiKey,
		signal: signal,
		log:    log,
	}
}

// Start establishes the websocket connection and begins consuming events.
func (l *HubListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := map[string][]string{}
	if l.apiKey != "" {
		header["Authorization"] = []string{"Bearer " + l.apiKey}
	}

	conn, _, err := dialer.DialContext(ctx, l.url, header)
	if err != nil {
		return fmt.Errorf("connector hub dial: %w", err)
	}

	l.conn = conn
	l.done = make(chan struct{})

	go l.readLoop(conn, l.done)
	go l.heartbeat(conn, l.done)

	return nil
}

// Stop closes the websocket connection.
func (l *HubListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	close(l.done)

	err := l.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	l.conn.Close()
	l.conn = nil
	if err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}

func (l *HubListener) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				l.log.WithError(err).Warn("connector hub read failed")
			}
			return
		}

		var ev hubEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			l.log.WithError(err).Debug("connector hub: unparseable event")
			continue
		}
		l.handleEvent(ev)
	}
}

func (l *HubListener) handleEvent(ev hubEvent) {
	switch ev.Type {
	case "connect":
		addr, err := NormalizeAddress(ev.Address)
		if err != nil {
			l.log.Warnf("connector hub: connect event with %v", err)
			return
		}
		l.log.Infof("connector %s connected %s", ev.ConnectorID, addr)
		l.signal.Set(addr)
	case "disconnect":
		l.log.Infof("connector %s disconnected", ev.ConnectorID)
		l.signal.Clear()
	default:
		l.log.Debugf("connector hub: ignoring event type %q", ev.Type)
	}
}

func (l *HubListener) heartbeat(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

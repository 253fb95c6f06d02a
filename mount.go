package htmlizer

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Message is pushed to live clients after every effective update.
type Message struct {
	Version int    `json:"version"`
	HTML    string `json:"html"`
}

// connection is one live client. Writes are serialized per connection.
type connection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *connection) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

const shell = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>htmlizer</title></head>
<body>
<div id="htmlizer-root">%s</div>
<script>
(function () {
  var root = document.getElementById("htmlizer-root");
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + location.pathname);
  ws.onmessage = function (e) { root.innerHTML = JSON.parse(e.data).html; };
})();
</script>
</body>
</html>
`

// Handler serves the page over HTTP and pushes updates over WebSocket on
// the same path.
func (p *Page) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			p.handleWebSocket(w, r)
			return
		}
		p.handleHTTP(w, r)
	})
}

func (p *Page) handleHTTP(w http.ResponseWriter, r *http.Request) {
	content, err := p.HTML()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Message{Version: p.Version(), HTML: content})
		return
	}
	fmt.Fprintf(w, shell, content)
}

func (p *Page) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := p.cfg.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	c := &connection{conn: ws}

	// register before rendering so no update is missed
	p.connsMu.Lock()
	p.conns[c] = struct{}{}
	p.connsMu.Unlock()
	defer func() {
		p.connsMu.Lock()
		delete(p.conns, c)
		p.connsMu.Unlock()
	}()

	p.mu.Lock()
	content, err := p.render()
	version := p.version
	p.mu.Unlock()
	if err != nil {
		log.Printf("Failed to render page: %v", err)
		return
	}

	data, err := json.Marshal(Message{Version: version, HTML: content})
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}
	if err := c.send(data); err != nil {
		log.Printf("Failed to send initial page: %v", err)
		return
	}

	// clients only listen; reading keeps control frames flowing
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// Clients returns the number of connected live clients.
func (p *Page) Clients() int {
	p.connsMu.RLock()
	defer p.connsMu.RUnlock()
	return len(p.conns)
}

func (p *Page) broadcast(version int, content string) {
	data, err := json.Marshal(Message{Version: version, HTML: content})
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	p.connsMu.RLock()
	conns := make([]*connection, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.connsMu.RUnlock()

	for _, c := range conns {
		if err := c.send(data); err != nil {
			log.Printf("WebSocket write failed: %v", err)
		}
	}
}

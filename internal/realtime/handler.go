package realtime

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// HandlerOpts configures the websocket endpoint.
type HandlerOpts struct {
	AllowedOrigins []string // empty allows any origin
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	// RoomExists vets join requests; nil accepts any chat id.
	RoomExists func(chatID uint) (bool, error)
}

func (o *HandlerOpts) applyDefaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Handler upgrades requests to websocket connections served by h. A
// chatId query parameter joins that room straight away.
func (h *Hub) Handler(opts HandlerOpts) http.HandlerFunc {
	opts.applyDefaults()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(opts.AllowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var initial uint
		if raw := r.URL.Query().Get("chatId"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				http.Error(w, "invalid chatId", http.StatusBadRequest)
				return
			}
			initial = uint(id)
			if opts.RoomExists != nil {
				ok, err := opts.RoomExists(initial)
				if err != nil {
					http.Error(w, "room check failed", http.StatusInternalServerError)
					return
				}
				if !ok {
					http.Error(w, "chat not found", http.StatusNotFound)
					return
				}
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := newClient(h, conn, opts)
		if initial != 0 {
			h.Join(initial, c)
		}
		go c.writePump()
		go c.readPump()
	}
}

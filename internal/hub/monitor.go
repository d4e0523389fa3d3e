package hub

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var monitorUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// audioMonitor fans Opus-encoded audio frames out to WebSocket
// subscribers of /monitor/audio (SPEC_FULL.md §4.8 expansion). A slow
// subscriber is dropped exactly like an SSE subscriber: a send that
// would block closes the connection instead of stalling the audio
// task that feeds BroadcastAudio.
type audioMonitor struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func newAudioMonitor() *audioMonitor {
	return &audioMonitor{subs: make(map[chan []byte]struct{})}
}

// BroadcastAudio implements audio.Broadcaster.
func (m *audioMonitor) BroadcastAudio(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- frame:
		default:
			delete(m.subs, ch)
			close(ch)
		}
	}
}

func (m *audioMonitor) subscribe() chan []byte {
	ch := make(chan []byte, 8)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

func (m *audioMonitor) unsubscribe(ch chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[ch]; ok {
		delete(m.subs, ch)
		close(ch)
	}
}

// EnableAudioMonitor turns on the /monitor/audio WebSocket endpoint.
// Call AudioBroadcaster to get the audio.Broadcaster to hand to
// audio.NewOpusMonitor.
func (s *Server) EnableAudioMonitor() {
	s.audioMon = newAudioMonitor()
}

// AudioBroadcaster exposes the hub's audio fan-out as an
// audio.Broadcaster without internal/audio importing internal/hub.
func (s *Server) AudioBroadcaster() interface{ BroadcastAudio([]byte) } {
	return s.audioMon
}

func (s *Server) handleMonitorAudio(w http.ResponseWriter, r *http.Request) {
	conn, err := monitorUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: monitor websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ch := s.audioMon.subscribe()
	defer s.audioMon.unsubscribe(ch)

	for frame := range ch {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return
		}
	}
}

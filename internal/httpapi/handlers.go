package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/y2kparty/console-backend/internal/config"
	"github.com/y2kparty/console-backend/internal/registry"
)

// emptyContent is the shape clients expect when no content pack is staged.
var emptyContent = map[string]any{
	"trivia_questions": []any{},
	"timeline_puzzles": []any{},
	"audio_tracks":     []any{},
	"picture_guesses":  []any{},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "console-backend"})
}

func Health(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state, _ := reg.CurrentState()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"game_state":  state,
			"teams_count": len(reg.TeamIDs()),
		})
	}
}

// Content serves the pre-prepared question pack, or the empty shape when
// none has been staged yet.
func Content(dataDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		raw, err := os.ReadFile(filepath.Join(dataDir, "questions.json"))
		if err != nil {
			writeJSON(w, http.StatusOK, emptyContent)
			return
		}
		var content map[string]any
		if err := json.Unmarshal(raw, &content); err != nil {
			writeJSON(w, http.StatusOK, emptyContent)
			return
		}
		writeJSON(w, http.StatusOK, content)
	}
}

// Soundtracks exposes the per-round background music section of the pack.
func Soundtracks(dataDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		raw, err := os.ReadFile(filepath.Join(dataDir, "questions.json"))
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		var content map[string]any
		if err := json.Unmarshal(raw, &content); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		if tracks, ok := content["round_soundtracks"].(map[string]any); ok {
			writeJSON(w, http.StatusOK, tracks)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	}
}

// LocalIP reports the LAN address and phone URL for QR code generation,
// plus the venue WiFi when configured.
func LocalIP(cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ip := localIP()
		_, port, err := net.SplitHostPort(cfg.Addr)
		if err != nil || port == "" {
			port = "13370"
		}

		resp := map[string]any{
			"local_ip":   ip,
			"port":       port,
			"mobile_url": "http://" + net.JoinHostPort(ip, port) + "/mobile",
		}
		if cfg.WifiSSID != "" && cfg.WifiPassword != "" {
			resp["wifi"] = map[string]string{
				"ssid":     cfg.WifiSSID,
				"password": cfg.WifiPassword,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// localIP finds the outbound LAN address without sending any packets; a UDP
// "connect" only selects a route.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

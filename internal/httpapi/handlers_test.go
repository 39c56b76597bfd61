package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/y2kparty/console-backend/internal/config"
	"github.com/y2kparty/console-backend/internal/hub"
	"github.com/y2kparty/console-backend/internal/registry"
)

func getJSON(t *testing.T, handler http.Handler, path string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d", path, rec.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("GET %s body: %v", path, err)
	}
	return out
}

func testRoutes(t *testing.T, dataDir string) http.Handler {
	t.Helper()
	cfg := config.Config{Addr: ":13370", DataDir: dataDir, AdminPassword: "pw"}
	reg := registry.New(dataDir, zap.NewNop())
	reg.CreateTeam("Alpha", "Ada", "sess-1")
	h := hub.New(reg, cfg.AdminPassword, zap.NewNop())
	return SetupRoutes(h, reg, cfg, zap.NewNop())
}

func TestHealth(t *testing.T) {
	routes := testRoutes(t, t.TempDir())
	body := getJSON(t, routes, "/health")
	if body["status"] != "ok" {
		t.Fatalf("status = %v", body["status"])
	}
	if body["game_state"] != registry.DefaultState {
		t.Fatalf("game_state = %v", body["game_state"])
	}
	if body["teams_count"] != float64(1) {
		t.Fatalf("teams_count = %v", body["teams_count"])
	}
}

func TestContentEmptyShape(t *testing.T) {
	routes := testRoutes(t, t.TempDir())
	body := getJSON(t, routes, "/api/content")
	for _, key := range []string{"trivia_questions", "timeline_puzzles", "audio_tracks", "picture_guesses"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("empty content missing %q", key)
		}
	}
}

func TestContentServesPack(t *testing.T) {
	dir := t.TempDir()
	pack := `{"trivia_questions":[{"q":"?"}],"round_soundtracks":{"BUZZER":"track-1"}}`
	if err := os.WriteFile(filepath.Join(dir, "questions.json"), []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}
	routes := testRoutes(t, dir)

	body := getJSON(t, routes, "/api/content")
	if qs, ok := body["trivia_questions"].([]any); !ok || len(qs) != 1 {
		t.Fatalf("trivia_questions = %v", body["trivia_questions"])
	}

	tracks := getJSON(t, routes, "/api/soundtracks")
	if tracks["BUZZER"] != "track-1" {
		t.Fatalf("soundtracks = %v", tracks)
	}
}

func TestLocalIP(t *testing.T) {
	routes := testRoutes(t, t.TempDir())
	body := getJSON(t, routes, "/api/local-ip")
	if body["local_ip"] == "" || body["mobile_url"] == "" {
		t.Fatalf("local-ip = %v", body)
	}
	if _, ok := body["wifi"]; ok {
		t.Fatal("wifi must be absent when not configured")
	}
}

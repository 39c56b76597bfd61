package registry

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Join codes avoid visually confusing characters: 0/O, 1/I/L.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const joinCodeLength = 4

const (
	// Sessions idle longer than this are removed by the sweep.
	SessionTTL = 24 * time.Hour
	// How often the sweep runs.
	SweepInterval = time.Hour
)

// DefaultState is the phase a fresh registry starts in.
const DefaultState = "LOBBY"

// Color is one entry of the team palette. IDs match the client CSS variables.
type Color struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// TeamColors is the palette assigned round-robin to new teams.
var TeamColors = []Color{
	{ID: 1, Name: "Coral", Hex: "#FF6B6B"},
	{ID: 2, Name: "Teal", Hex: "#4ECDC4"},
	{ID: 3, Name: "Yellow", Hex: "#FFE66D"},
	{ID: 4, Name: "Mint", Hex: "#95E1D3"},
	{ID: 5, Name: "Plum", Hex: "#DDA0DD"},
	{ID: 6, Name: "Sky", Hex: "#87CEEB"},
	{ID: 7, Name: "Sand", Hex: "#F4A460"},
	{ID: 8, Name: "Seafoam", Hex: "#98D8C8"},
}

type Player struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

type Team struct {
	Name       string            `json:"name"`
	Score      int               `json:"score"`
	Status     string            `json:"status"`
	Eliminated bool              `json:"eliminated"`
	JoinCode   string            `json:"join_code"`
	Color      int               `json:"color"`
	Avatar     string            `json:"avatar,omitempty"`
	Players    map[string]Player `json:"players"`
}

// Session binds a transport connection id to a (team, player) identity. It is
// a disposable pointer: identity truth lives on the team roster, which is what
// makes refresh/reconnect transparent.
type Session struct {
	TeamID   string    `json:"team_id"`
	PlayerID string    `json:"player_id"`
	LastSeen time.Time `json:"last_seen"`
}

type PlayerInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// JoinResult is the structured outcome of CreateTeam / JoinTeam. Validation
// failures are values, not errors.
type JoinResult struct {
	Success    bool         `json:"success"`
	TeamID     string       `json:"team_id,omitempty"`
	PlayerID   string       `json:"player_id,omitempty"`
	TeamName   string       `json:"team_name,omitempty"`
	PlayerName string       `json:"player_name,omitempty"`
	JoinCode   string       `json:"join_code,omitempty"`
	Color      int          `json:"color,omitempty"`
	Players    []PlayerInfo `json:"players,omitempty"`
	Code       string       `json:"code,omitempty"`
	Message    string       `json:"message"`
}

// TeamInfo is the broadcast-safe view of a team.
type TeamInfo struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Color   int      `json:"color"`
	Avatar  string   `json:"avatar"`
	Players []string `json:"players"`
}

// SyncState is the reconnection payload. It carries no game-phase data;
// the router attaches that.
type SyncState struct {
	TeamID     string         `json:"team_id"`
	TeamName   string         `json:"team_name"`
	PlayerID   string         `json:"player_id"`
	PlayerName string         `json:"player_name"`
	JoinCode   string         `json:"join_code"`
	Color      int            `json:"color"`
	Players    []PlayerInfo   `json:"players"`
	Scores     map[string]int `json:"scores"`
}

// Registry is the sole authority for team, player and session identity,
// scoring, and crash-safe persistence. It knows nothing about game rules.
//
// Every exported mutating or compound-read method holds the mutex for its
// full duration, including the persistence write, so a half-applied snapshot
// is never observable and reconnect-or-create sequences cannot race.
// Unexported helpers assume the lock is already held.
type Registry struct {
	mu sync.Mutex

	teams     map[string]*Team
	sessions  map[string]*Session
	joinCodes map[string]string // code -> team id

	currentState string
	stateData    map[string]any

	dataDir string
	log     *zap.Logger

	now func() time.Time
}

// New loads any persisted snapshot from dataDir and returns a ready registry.
// An unreadable or absent snapshot is not fatal; the registry starts empty.
func New(dataDir string, log *zap.Logger) *Registry {
	r := &Registry{
		teams:        make(map[string]*Team),
		sessions:     make(map[string]*Session),
		joinCodes:    make(map[string]string),
		currentState: DefaultState,
		stateData:    map[string]any{},
		dataDir:      dataDir,
		log:          log,
		now:          time.Now,
	}
	r.load()
	log.Info("registry initialized", zap.Int("teams", len(r.teams)), zap.String("state", r.currentState))
	return r
}

func generateJoinCode() string {
	code := make([]byte, joinCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeAlphabet))))
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken;
			// fall back to a fixed symbol rather than crash mid-party.
			code[i] = joinCodeAlphabet[0]
			continue
		}
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code)
}

func validName(name string) bool {
	return name != "" && len([]rune(name)) <= 20
}

// CreateTeam registers a new team with its first player. If the session is
// already bound to a live team the call is an idempotent reconnect.
func (r *Registry) CreateTeam(teamName, playerName, sessionID string) JoinResult {
	teamName = strings.TrimSpace(teamName)
	if !validName(teamName) {
		return JoinResult{Message: "Team name must be 1-20 characters"}
	}
	playerName = strings.TrimSpace(playerName)
	if !validName(playerName) {
		return JoinResult{Message: "Player name must be 1-20 characters"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.reconnectResult(sessionID); ok {
		return res
	}

	for _, team := range r.teams {
		if strings.EqualFold(team.Name, teamName) {
			return JoinResult{Message: "Team name already taken"}
		}
	}

	joinCode := generateJoinCode()
	for {
		if _, taken := r.joinCodes[joinCode]; !taken {
			break
		}
		joinCode = generateJoinCode()
	}

	teamID := uuid.NewString()
	playerID := uuid.NewString()
	color := r.nextColor()

	r.teams[teamID] = &Team{
		Name:     teamName,
		Score:    0,
		Status:   "active",
		JoinCode: joinCode,
		Color:    color,
		Players: map[string]Player{
			playerID: {Name: playerName, JoinedAt: r.now()},
		},
	}
	r.joinCodes[joinCode] = teamID
	r.sessions[sessionID] = &Session{TeamID: teamID, PlayerID: playerID, LastSeen: r.now()}

	r.save()

	r.log.Info("team created",
		zap.String("team", teamName),
		zap.String("team_id", teamID),
		zap.String("player", playerName),
		zap.String("join_code", joinCode))

	return JoinResult{
		Success:    true,
		TeamID:     teamID,
		PlayerID:   playerID,
		TeamName:   teamName,
		PlayerName: playerName,
		JoinCode:   joinCode,
		Color:      color,
		Players:    r.playersList(teamID),
		Message:    "Team created successfully",
	}
}

// JoinTeam attaches an additional player to an existing team by join code.
func (r *Registry) JoinTeam(joinCode, playerName, sessionID string) JoinResult {
	playerName = strings.TrimSpace(playerName)
	if !validName(playerName) {
		return JoinResult{Message: "Player name must be 1-20 characters"}
	}
	joinCode = strings.ToUpper(strings.TrimSpace(joinCode))

	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.reconnectResult(sessionID); ok {
		return res
	}

	teamID, ok := r.joinCodes[joinCode]
	if !ok {
		return JoinResult{Code: "INVALID_CODE", Message: "Invalid join code"}
	}
	team := r.teams[teamID]

	for _, p := range team.Players {
		if strings.EqualFold(p.Name, playerName) {
			return JoinResult{Code: "NAME_TAKEN", Message: "Player name already taken on this team"}
		}
	}

	playerID := uuid.NewString()
	team.Players[playerID] = Player{Name: playerName, JoinedAt: r.now()}
	r.sessions[sessionID] = &Session{TeamID: teamID, PlayerID: playerID, LastSeen: r.now()}

	r.save()

	r.log.Info("player joined team",
		zap.String("player", playerName),
		zap.String("team", team.Name),
		zap.String("team_id", teamID))

	return JoinResult{
		Success:    true,
		TeamID:     teamID,
		PlayerID:   playerID,
		TeamName:   team.Name,
		PlayerName: playerName,
		JoinCode:   joinCode,
		Color:      team.Color,
		Players:    r.playersList(teamID),
		Message:    "Joined team " + team.Name,
	}
}

// reconnectResult returns the idempotent-reconnect response when the session
// already maps to a live team. Requires the lock.
func (r *Registry) reconnectResult(sessionID string) (JoinResult, bool) {
	sess, ok := r.sessions[sessionID]
	if !ok {
		return JoinResult{}, false
	}
	team, ok := r.teams[sess.TeamID]
	if !ok {
		return JoinResult{}, false
	}
	playerName := ""
	if p, ok := team.Players[sess.PlayerID]; ok {
		playerName = p.Name
	}
	return JoinResult{
		Success:    true,
		TeamID:     sess.TeamID,
		PlayerID:   sess.PlayerID,
		TeamName:   team.Name,
		PlayerName: playerName,
		JoinCode:   team.JoinCode,
		Color:      team.Color,
		Players:    r.playersList(sess.TeamID),
		Message:    "Reconnected to existing team",
	}, true
}

// Reassociate binds a fresh connection id to previously stored identity.
// Used after a page refresh hands the client a new transport session.
func (r *Registry) Reassociate(sessionID, teamID, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[teamID]
	if !ok {
		return false
	}
	player, ok := team.Players[playerID]
	if !ok {
		return false
	}

	r.sessions[sessionID] = &Session{TeamID: teamID, PlayerID: playerID, LastSeen: r.now()}
	r.save()

	r.log.Info("session reassociated",
		zap.String("session_id", sessionID),
		zap.String("player", player.Name),
		zap.String("team", team.Name))
	return true
}

// Touch refreshes a session's last_seen timestamp.
func (r *Registry) Touch(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[sessionID]; ok {
		sess.LastSeen = r.now()
	}
}

// SessionFor returns the identity bound to a connection, if any.
func (r *Registry) SessionFor(sessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Team returns a copy of a team; callers never see live map references.
func (r *Registry) Team(teamID string) (Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[teamID]
	if !ok {
		return Team{}, false
	}
	return copyTeam(team), true
}

func copyTeam(t *Team) Team {
	out := *t
	out.Players = make(map[string]Player, len(t.Players))
	for id, p := range t.Players {
		out.Players[id] = p
	}
	return out
}

// PlayerFor returns player info by team and player id.
func (r *Registry) PlayerFor(teamID, playerID string) (PlayerInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[teamID]
	if !ok {
		return PlayerInfo{}, false
	}
	p, ok := team.Players[playerID]
	if !ok {
		return PlayerInfo{}, false
	}
	return PlayerInfo{PlayerID: playerID, Name: p.Name}, true
}

// SetState records the active phase and its init payload. Persisted so a
// crash mid-game restarts into the same phase.
func (r *Registry) SetState(state string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentState = state
	if data == nil {
		data = map[string]any{}
	}
	r.stateData = data
	r.save()
}

// CurrentState returns the persisted phase id and its init payload.
func (r *Registry) CurrentState() (string, map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentState, r.stateData
}

// AddPoints adjusts a team's score. Negative deltas are allowed and scores
// may go below zero.
func (r *Registry) AddPoints(teamID string, points int, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[teamID]
	if !ok {
		return false
	}
	team.Score += points
	r.save()

	r.log.Info("points awarded",
		zap.String("team", team.Name),
		zap.Int("points", points),
		zap.String("reason", reason))
	return true
}

// KickTeam removes a team, its join code, and every session pointing at it.
func (r *Registry) KickTeam(teamID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[teamID]
	if !ok {
		return false
	}
	delete(r.joinCodes, team.JoinCode)
	delete(r.teams, teamID)
	for sid, sess := range r.sessions {
		if sess.TeamID == teamID {
			delete(r.sessions, sid)
		}
	}
	r.save()

	r.log.Info("team kicked", zap.String("team", team.Name))
	return true
}

// SetAvatar stores a team's avatar identifier.
func (r *Registry) SetAvatar(teamID, avatarID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[teamID]
	if !ok {
		return false
	}
	team.Avatar = avatarID
	r.save()
	return true
}

// ToggleElimination marks a team eliminated or active again.
func (r *Registry) ToggleElimination(teamID string, eliminated bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[teamID]
	if !ok {
		return false
	}
	team.Eliminated = eliminated
	if eliminated {
		team.Status = "eliminated"
	} else {
		team.Status = "active"
	}
	r.save()
	return true
}

// ResetGame wipes game progress. With preserveTeams the rosters survive and
// only scores and elimination flags are cleared.
func (r *Registry) ResetGame(preserveTeams bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if preserveTeams {
		for _, team := range r.teams {
			team.Score = 0
			team.Status = "active"
			team.Eliminated = false
		}
	} else {
		r.teams = make(map[string]*Team)
		r.sessions = make(map[string]*Session)
		r.joinCodes = make(map[string]string)
	}
	r.save()

	r.log.Info("game reset", zap.Bool("preserve_teams", preserveTeams))
}

// Scores returns the current score of every team.
func (r *Registry) Scores() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scores()
}

func (r *Registry) scores() map[string]int {
	out := make(map[string]int, len(r.teams))
	for id, team := range r.teams {
		out[id] = team.Score
	}
	return out
}

// TeamsInfo returns the broadcast view of all teams.
func (r *Registry) TeamsInfo() map[string]TeamInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]TeamInfo, len(r.teams))
	for id, team := range r.teams {
		names := make([]string, 0, len(team.Players))
		for _, p := range team.Players {
			names = append(names, p.Name)
		}
		out[id] = TeamInfo{
			Name:    team.Name,
			Status:  team.Status,
			Color:   team.Color,
			Avatar:  team.Avatar,
			Players: names,
		}
	}
	return out
}

// TeamIDs returns the ids of all registered teams.
func (r *Registry) TeamIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.teams))
	for id := range r.teams {
		out = append(out, id)
	}
	return out
}

// RemainingTeams counts teams not yet eliminated.
func (r *Registry) RemainingTeams() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, team := range r.teams {
		if !team.Eliminated {
			n++
		}
	}
	return n
}

// TeamColor returns the palette entry for a team, defaulting to the first.
func (r *Registry) TeamColor(teamID string) Color {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[teamID]
	if !ok {
		return TeamColors[0]
	}
	for _, c := range TeamColors {
		if c.ID == team.Color {
			return c
		}
	}
	return TeamColors[0]
}

// SyncStateFor assembles the reconnection payload for a player. Phase data is
// the router's responsibility and intentionally not included.
func (r *Registry) SyncStateFor(teamID, playerID string) SyncState {
	r.mu.Lock()
	defer r.mu.Unlock()

	sync := SyncState{
		TeamID:   teamID,
		PlayerID: playerID,
		Scores:   r.scores(),
		Players:  r.playersList(teamID),
	}
	team, ok := r.teams[teamID]
	if !ok {
		return sync
	}
	sync.TeamName = team.Name
	sync.JoinCode = team.JoinCode
	sync.Color = team.Color
	if p, ok := team.Players[playerID]; ok {
		sync.PlayerName = p.Name
	}
	return sync
}

// playersList requires the lock.
func (r *Registry) playersList(teamID string) []PlayerInfo {
	team, ok := r.teams[teamID]
	if !ok {
		return nil
	}
	out := make([]PlayerInfo, 0, len(team.Players))
	for id, p := range team.Players {
		out = append(out, PlayerInfo{PlayerID: id, Name: p.Name})
	}
	return out
}

// nextColor requires the lock. Cycles once the palette is exhausted.
func (r *Registry) nextColor() int {
	used := make(map[int]bool, len(r.teams))
	for _, team := range r.teams {
		used[team.Color] = true
	}
	for _, c := range TeamColors {
		if !used[c.ID] {
			return c.ID
		}
	}
	return (len(r.teams) % len(TeamColors)) + 1
}

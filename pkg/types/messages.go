package types

// Every frame in both directions is one JSON object:
//   { "event": string, "data": object }

// Client -> Server (platform)
// create_team:
//   team_name: string
//   player_name: string
//
// join_team:
//   join_code: string
//   player_name: string
//
// rejoin_session:
//   team_id: string
//   player_id: string
//
// request_tv_sync: {}
//
// admin_auth:
//   password: string
//
// set_state (admin):
//   new_state: string // cartridge id, e.g. "BUZZER"
//   state_data: object
//
// add_points (admin):
//   team_id: string
//   points: number // may be negative
//   reason: string
//
// reset_game (admin):
//   confirm: boolean // ignored unless true
//   preserve_teams: boolean
//
// kick_team (admin):
//   team_id: string
//
// toggle_qr_code (admin):
//   visible: boolean
//
// select_avatar:
//   team_id: string
//   avatar_id: string
//
// send_reaction / send_chat_message: passed through verbatim as a broadcast.
//
// Anything else is routed to the active cartridge by event name and
// silently dropped if the active cartridge does not declare it.

// Server -> Client (platform)
// creation_result / join_result:
//   success: boolean
//   team_id, player_id, team_name, player_name, join_code: string
//   color: number // palette id 1-8
//   players: [{ player_id, name }]
//   code: string // "INVALID_CODE" | "NAME_TAKEN", only on failure
//   message: string
//
// rejoin_result:
//   success: boolean
//   message: string // only on failure
//
// player_joined: // to the joined team
//   player_id, player_name: string
//   players: [{ player_id, name }]
//
// score_update:
//   scores: { [teamId]: number }
//   teams: { [teamId]: { name, status, color, avatar, players: [string] } }
//
// state_change:
//   current_state: string
//   state_data: object // sanitized, safe for every screen
//
// admin_auth_result:
//   success: boolean
//   message: string
//
// team_kicked: // to the kicked team
//   message: "TERMINATED"
//
// qr_visibility:
//   visible: boolean
//
// avatar_updated:
//   team_id, team_name, avatar_id: string
//
// error: // only to the sender
//   code: string
//   message: string

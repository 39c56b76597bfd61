package types

// sync_state: // replayed to a reconnecting client
//   team_id, team_name: string
//   player_id, player_name: string
//   join_code: string
//   color: number
//   players: [{ player_id, name }]
//   scores: { [teamId]: number }
//   current_state: string
//   state_data: object // sanitized view of the active cartridge

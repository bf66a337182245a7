package models

import "time"

// PortCount is the number of controller ports on a recording station.
const PortCount = 4

// PortState holds the per-port outcome of a single recorded game. A nil
// *PortState in Game.Ports means the port was empty.
type PortState struct {
	Character string `json:"character"`
	DeadAtEnd bool   `json:"dead_at_end"`
}

// Game is one recorded contest extracted from a replay file.
type Game struct {
	StartedAt   time.Time             `json:"started_at"`
	EndedAt     time.Time             `json:"ended_at"`
	Stage       string                `json:"stage"`
	Ports       [PortCount]*PortState `json:"ports"`
	PlayerCount int                   `json:"player_count"`
	SourceFile  string                `json:"source_file"`
}

// OccupiedPorts returns the indices of the ports that held a player.
func (g *Game) OccupiedPorts() []int {
	occupied := make([]int, 0, g.PlayerCount)
	for i, p := range g.Ports {
		if p != nil {
			occupied = append(occupied, i)
		}
	}
	return occupied
}

// Setup is a recording station holding a time-ordered sequence of games.
// Immutable once parsed.
type Setup struct {
	ID    string `json:"id"`
	Games []Game `json:"games"`
}

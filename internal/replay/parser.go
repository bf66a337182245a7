// Package replay parses Slippi .slp replay files into Game records and
// groups them into per-setup sequences.
package replay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/yourusername/replay-labeller/internal/models"
)

// Slippi event command bytes.
const (
	cmdEventPayloads = 0x35
	cmdGameStart     = 0x36
	cmdPostFrame     = 0x38
)

// Offsets within the Game Start event (relative to the command byte).
const (
	offStage      = 0x13
	offPlayerBase = 0x65
	offPlayerSize = 0x24
	offPlayerType = 0x66
)

// Offsets within the Post Frame Update event.
const (
	offFramePlayer   = 0x05
	offFrameFollower = 0x06
	offFrameStocks   = 0x21
)

// playerTypeEmpty marks an unoccupied port in the Game Start block.
const playerTypeEmpty = 3

// framesBeforeGo is the engine's pre-"GO!" frame count; the first playable
// frame is -123, so total frames = lastFrame + 124.
const framesBeforeGo = 124

const framesPerSecond = 60.0

// rawHeader is the UBJSON prefix of every .slp file: the opening of the
// outer object and the "raw" byte-array element with a 4-byte length.
var rawHeader = []byte{'{', 'U', 3, 'r', 'a', 'w', '[', '$', 'U', '#', 'l'}

// externalCharacters maps Slippi external character IDs (character-select
// order) to names.
var externalCharacters = []string{
	"CAPTAIN_FALCON", "DONKEY_KONG", "FOX", "GAME_AND_WATCH", "KIRBY",
	"BOWSER", "LINK", "LUIGI", "MARIO", "MARTH", "MEWTWO", "NESS", "PEACH",
	"PIKACHU", "ICE_CLIMBERS", "JIGGLYPUFF", "SAMUS", "YOSHI", "ZELDA",
	"SHEIK", "FALCO", "YOUNG_LINK", "DR_MARIO", "ROY", "PICHU", "GANONDORF",
}

// stages maps the stage IDs seen in tournament play; anything else renders
// as STAGE_<id>.
var stages = map[uint16]string{
	2:  "FOUNTAIN_OF_DREAMS",
	3:  "POKEMON_STADIUM",
	8:  "YOSHIS_STORY",
	28: "DREAM_LAND_N64",
	31: "BATTLEFIELD",
	32: "FINAL_DESTINATION",
}

func characterName(id byte) string {
	if int(id) < len(externalCharacters) {
		return externalCharacters[id]
	}
	return fmt.Sprintf("CHARACTER_%d", id)
}

func stageName(id uint16) string {
	if name, ok := stages[id]; ok {
		return name
	}
	return fmt.Sprintf("STAGE_%d", id)
}

// ParseGame reads a .slp file and extracts the fields labelling needs:
// start/end instants, stage, and per-port character and stock outcome.
// loc is the zone replay timestamps without an explicit offset are recorded
// in.
func ParseGame(path string, loc *time.Location) (*models.Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay: %w", err)
	}
	return parse(data, path, loc)
}

func parse(data []byte, path string, loc *time.Location) (*models.Game, error) {
	if !bytes.HasPrefix(data, rawHeader) {
		return nil, fmt.Errorf("%s is not a Slippi replay", path)
	}
	rawStart := len(rawHeader) + 4
	if len(data) < rawStart {
		return nil, fmt.Errorf("%s: truncated raw header", path)
	}
	rawLen := int(binary.BigEndian.Uint32(data[len(rawHeader):rawStart]))
	if rawLen <= 0 || rawStart+rawLen > len(data) {
		return nil, fmt.Errorf("%s: raw element length %d out of range", path, rawLen)
	}
	raw := data[rawStart : rawStart+rawLen]

	game := &models.Game{SourceFile: path}
	var stocks [models.PortCount]byte
	if err := walkEvents(raw, game, &stocks); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if game.PlayerCount == 0 {
		return nil, fmt.Errorf("%s: no Game Start event found", path)
	}

	for i, port := range game.Ports {
		if port != nil {
			port.DeadAtEnd = stocks[i] == 0
		}
	}

	meta, err := parseTrailingMetadata(data[rawStart+rawLen:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	start, duration, err := timingFromMetadata(meta, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	game.StartedAt = start
	game.EndedAt = start.Add(duration)

	return game, nil
}

// walkEvents scans the raw event stream: the Event Payloads declaration,
// then fixed-size events. Game Start fills ports and stage; Post Frame
// updates keep the latest leader stock count per port.
func walkEvents(raw []byte, game *models.Game, stocks *[models.PortCount]byte) error {
	if len(raw) < 2 || raw[0] != cmdEventPayloads {
		return fmt.Errorf("raw stream does not begin with an event payloads declaration")
	}
	declLen := int(raw[1])
	if 1+declLen > len(raw) || declLen < 1 {
		return fmt.Errorf("event payloads declaration truncated")
	}

	sizes := map[byte]int{}
	for i := 2; i+3 <= 1+declLen; i += 3 {
		sizes[raw[i]] = int(binary.BigEndian.Uint16(raw[i+1 : i+3]))
	}

	pos := 1 + declLen
	for pos < len(raw) {
		cmd := raw[pos]
		size, known := sizes[cmd]
		if !known {
			// Unknown event without a declared size; the stream cannot be
			// walked further.
			return fmt.Errorf("undeclared event 0x%02x at offset %d", cmd, pos)
		}
		if pos+1+size > len(raw) {
			break // final event truncated by an interrupted recording
		}
		event := raw[pos : pos+1+size]

		switch cmd {
		case cmdGameStart:
			if err := readGameStart(event, game); err != nil {
				return err
			}
		case cmdPostFrame:
			readPostFrame(event, stocks)
		}
		pos += 1 + size
	}
	return nil
}

func readGameStart(event []byte, game *models.Game) error {
	last := offPlayerBase + (models.PortCount-1)*offPlayerSize + 1
	if len(event) <= last {
		return fmt.Errorf("game start event too short (%d bytes)", len(event))
	}

	game.Stage = stageName(binary.BigEndian.Uint16(event[offStage : offStage+2]))
	for i := 0; i < models.PortCount; i++ {
		playerType := event[offPlayerType+i*offPlayerSize]
		if playerType == playerTypeEmpty {
			continue
		}
		game.Ports[i] = &models.PortState{
			Character: characterName(event[offPlayerBase+i*offPlayerSize]),
		}
		game.PlayerCount++
	}
	return nil
}

func readPostFrame(event []byte, stocks *[models.PortCount]byte) {
	if len(event) <= offFrameStocks {
		return
	}
	port := event[offFramePlayer]
	// Follower frames belong to Nana; the leader's stocks decide the game.
	if event[offFrameFollower] != 0 || int(port) >= models.PortCount {
		return
	}
	stocks[port] = event[offFrameStocks]
}

// parseTrailingMetadata locates and decodes the metadata element following
// the raw byte array.
func parseTrailingMetadata(tail []byte) (map[string]any, error) {
	marker := []byte{'U', 8, 'm', 'e', 't', 'a', 'd', 'a', 't', 'a'}
	idx := bytes.Index(tail, marker)
	if idx < 0 {
		return nil, fmt.Errorf("metadata element not found")
	}
	return decodeMetadata(tail[idx+len(marker):])
}

func timingFromMetadata(meta map[string]any, loc *time.Location) (time.Time, time.Duration, error) {
	startRaw, ok := meta["startAt"].(string)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("metadata is missing startAt")
	}
	start, err := parseStartAt(startRaw, loc)
	if err != nil {
		return time.Time{}, 0, err
	}

	lastFrame, ok := meta["lastFrame"].(int64)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("metadata is missing lastFrame")
	}
	seconds := float64(lastFrame+framesBeforeGo) / framesPerSecond
	return start, time.Duration(seconds * float64(time.Second)), nil
}

// parseStartAt parses the metadata timestamp. Console recordings write a
// zone-less timestamp in the console's local clock, which is the configured
// replay zone.
func parseStartAt(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable startAt %q: %w", s, err)
	}
	// Dolphin writes Zulu timestamps; present them in the replay zone so
	// every setup shares one clock.
	return t.In(loc), nil
}

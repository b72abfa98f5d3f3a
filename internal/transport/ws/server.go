package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"automancy.dev/internal/data"
	"automancy.dev/internal/game"
	"automancy.dev/internal/persistence/mapdb"
	"automancy.dev/internal/resources"
)

// Server bridges renderer and UI clients to the scheduler: frames fan
// out to every subscriber, commands are applied one RPC at a time per
// connection.
type Server struct {
	game    *game.Game
	reg     *resources.Registry
	errs    *game.ErrorStack
	saves   *mapdb.SQLiteIndex
	mapsDir string
	log     *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	out chan []byte
}

func NewServer(g *game.Game, reg *resources.Registry, errs *game.ErrorStack, saves *mapdb.SQLiteIndex, mapsDir string, logger *log.Logger) *Server {
	return &Server{
		game:    g,
		reg:     reg,
		errs:    errs,
		saves:   saves,
		mapsDir: mapsDir,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[*client]struct{}{},
	}
}

// Broadcast pushes a frame to every subscriber. Slow subscribers drop
// frames; the send never blocks the caller.
func (s *Server) Broadcast(f game.Frame) {
	b, err := json.Marshal(FrameMsg{Type: TypeFrame, Frame: f})
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
		}
	}
}

func (s *Server) add(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != TypeSubscribe || sub.ProtocolVersion != Version {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
				time.Now().Add(time.Second))
			return
		}

		c := &client{out: make(chan []byte, 64)}
		s.add(c)
		defer s.drop(c)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			var cmd CommandMsg
			if err := json.Unmarshal(msg, &cmd); err != nil || cmd.Type != TypeCommand {
				continue
			}
			res := s.handleCommand(ctx, cmd)
			b, err := json.Marshal(res)
			if err != nil {
				continue
			}
			select {
			case c.out <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, cmd CommandMsg) ResultMsg {
	res := ResultMsg{Type: TypeResult, Seq: cmd.Seq}

	gameCmd, build, err := s.decodeCommand(cmd, &res)
	if err != nil {
		return fail(res, err)
	}
	if gameCmd == nil {
		// Answered locally, no scheduler round trip.
		res.Ok = true
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := s.game.Apply(ctx, gameCmd)
	if err != nil {
		return fail(res, err)
	}
	if build != nil {
		build(value)
	}
	res.Ok = true
	return res
}

func fail(res ResultMsg, err error) ResultMsg {
	var ce *game.CommandError
	if errors.As(err, &ce) {
		res.Err = &ErrorMsg{Code: ce.Code, Message: ce.Message}
	} else {
		res.Err = &ErrorMsg{Code: game.ErrIO, Message: err.Error()}
	}
	return res
}

// decodeCommand maps a wire command onto a scheduler command plus a
// result builder. A nil command with a nil error means the op was
// answered locally.
func (s *Server) decodeCommand(cmd CommandMsg, res *ResultMsg) (game.Command, func(any), error) {
	intern := func(raw string) (data.Id, error) {
		return s.reg.Interner.Parse(raw, resources.DefaultNamespace)
	}
	resolve := s.reg.Interner.Resolve

	switch cmd.Op {
	case "place_tile":
		if cmd.Coord == nil {
			return nil, nil, errBadCoord()
		}
		id, err := intern(cmd.Id)
		if err != nil {
			return nil, nil, err
		}
		initial, err := data.MapFromRaw(cmd.Data, intern)
		if err != nil {
			return nil, nil, err
		}
		return game.PlaceTile{Coord: *cmd.Coord, Id: id, Data: initial}, nil, nil

	case "remove_tile":
		if cmd.Coord == nil {
			return nil, nil, errBadCoord()
		}
		return game.RemoveTile{Coord: *cmd.Coord}, nil, nil

	case "move_region":
		if cmd.Bounds == nil || cmd.Offset == nil {
			return nil, nil, errBadCoord()
		}
		return game.MoveRegion{Bounds: cmd.Bounds.bounds(), Offset: *cmd.Offset}, nil, nil

	case "read_data", "read_global":
		key, err := intern(cmd.Key)
		if err != nil {
			return nil, nil, err
		}
		var c game.Command
		if cmd.Op == "read_data" {
			if cmd.Coord == nil {
				return nil, nil, errBadCoord()
			}
			c = game.ReadData{Coord: *cmd.Coord, Key: key}
		} else {
			c = game.ReadGlobal{Key: key}
		}
		return c, func(v any) {
			if info, ok := v.(game.DataInfo); ok && info.Ok {
				raw := data.ToRaw(info.Value, resolve)
				res.Value = &raw
			}
		}, nil

	case "write_data", "write_global":
		key, err := intern(cmd.Key)
		if err != nil {
			return nil, nil, err
		}
		var value data.Data
		if cmd.Value != nil {
			value, err = data.FromRaw(*cmd.Value, intern)
			if err != nil {
				return nil, nil, err
			}
		}
		if cmd.Op == "write_global" {
			return game.WriteGlobal{Key: key, Value: value}, nil, nil
		}
		if cmd.Coord == nil {
			return nil, nil, errBadCoord()
		}
		return game.WriteData{Coord: *cmd.Coord, Key: key, Value: value}, nil, nil

	case "query_tile":
		if cmd.Coord == nil {
			return nil, nil, errBadCoord()
		}
		return game.QueryTile{Coord: *cmd.Coord}, func(v any) {
			if info, ok := v.(*game.TileInfo); ok && info != nil {
				res.Tile = &TileMsg{Id: info.IdRaw, Data: data.MapToRaw(info.Data, resolve)}
			}
		}, nil

	case "get_tile_ui":
		if cmd.Coord == nil {
			return nil, nil, errBadCoord()
		}
		return game.GetTileUi{Coord: *cmd.Coord}, func(v any) {
			if info, ok := v.(game.UiInfo); ok && info.Ok {
				ui := uiToWire(s.reg, info.Root)
				res.Ui = &ui
			}
		}, nil

	case "undo":
		return game.Undo{}, nil, nil
	case "start":
		return game.StartGame{}, nil, nil
	case "pause":
		return game.PauseGame{}, nil, nil
	case "resume":
		return game.ResumeGame{}, nil, nil
	case "quit":
		return game.QuitGame{}, nil, nil

	case "save_map":
		if cmd.Name == "" {
			return nil, nil, &game.CommandError{Code: game.ErrIO, Message: "save needs a name"}
		}
		path := filepath.Join(s.mapsDir, cmd.Name+".zst")
		return game.SaveMap{Path: path, Name: cmd.Name}, func(v any) {
			if info, ok := v.(game.SaveInfo); ok {
				s.saves.RecordSave(info.Name, info.Path, info.Tick, info.Tiles)
				res.Save = &SaveMsg{Name: info.Name, Path: info.Path, Tick: info.Tick, Tiles: info.Tiles}
			}
		}, nil

	case "load_map":
		path := filepath.Join(s.mapsDir, cmd.Name+".zst")
		if s.saves != nil {
			if m, ok, err := s.saves.Get(cmd.Name); err == nil && ok {
				path = m.Path
			}
		}
		return game.LoadMap{Path: path}, nil, nil

	case "list_saves":
		if s.saves != nil {
			s.saves.Sync()
			maps, err := s.saves.List()
			if err != nil {
				return nil, nil, err
			}
			for _, m := range maps {
				res.Saves = append(res.Saves, SaveMsg{
					Name:    m.Name,
					Path:    m.Path,
					Tick:    m.Tick,
					Tiles:   m.Tiles,
					SavedAt: m.SavedAt.Format(time.RFC3339Nano),
				})
			}
		}
		return nil, nil, nil

	case "pop_error":
		if e, ok := s.errs.Pop(); ok {
			msg := &ErrorMsg{Code: e.Code, Message: e.Message}
			if text, ok := s.reg.ErrorText(e.Code, e.Message); ok {
				msg.Text = text
			}
			res.Popped = msg
		}
		return nil, nil, nil

	case "tick":
		res.Tick = s.game.Tick()
		return nil, nil, nil

	default:
		return nil, nil, &game.CommandError{Code: game.ErrIO, Message: "unknown op " + cmd.Op}
	}
}

func errBadCoord() error {
	return &game.CommandError{Code: game.ErrBadCoord, Message: "missing or invalid coordinates"}
}

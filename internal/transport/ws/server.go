// Package ws serves quarry sessions over websocket: a HELLO/WELCOME
// handshake, CMD/ACK round trips through the world inbox, and per-tick STATE
// pushes after SUBSCRIBE.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelquarry.ai/internal/protocol"
	"voxelquarry.ai/internal/sim/mathx"
	"voxelquarry.ai/internal/sim/world"
)

const (
	writeTimeout  = 5 * time.Second
	readTimeout   = 60 * time.Second
	submitTimeout = 5 * time.Second
	outQueue      = 64
)

type Server struct {
	world *world.World
	log   *zap.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	resumes map[string]string // resume token -> session id
}

func NewServer(w *world.World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		resumes: map[string]string{},
	}
}

type session struct {
	id    string
	out   chan []byte
	state chan []byte

	subscribed atomic.Bool
	filter     atomic.Pointer[map[[3]int]bool]
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		log := s.log.With(zap.String("session", sess.id))
		log.Debug("session opened", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		var wg sync.WaitGroup

		// Writer goroutine.
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					if err := writeRaw(conn, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				case b := <-sess.state:
					if err := writeRaw(conn, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop.
		for ctx.Err() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handleMessage(ctx, &wg, sess, msg, log)
		}
		cancel()

		if sess.subscribed.Load() {
			leaveCtx, leaveCancel := context.WithTimeout(context.Background(), time.Second)
			if err := s.world.RemoveObserver(leaveCtx, sess.id); err != nil {
				log.Debug("observer leave", zap.Error(err))
			}
			leaveCancel()
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
		wg.Wait()
		log.Debug("session closed")
	}
}

func (s *Server) handleMessage(ctx context.Context, wg *sync.WaitGroup, sess *session, msg []byte, log *zap.Logger) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.sendError(ctx, sess, protocol.ErrProtoBadRequest, "invalid json")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.sendError(ctx, sess, protocol.ErrProtoBadRequest, "bad protocol_version")
		return
	}
	switch base.Type {
	case protocol.TypeCmd:
		if err := protocol.Validate(protocol.TypeCmd, msg); err != nil {
			log.Debug("rejected command", zap.Error(err))
			var id struct {
				ID string `json:"id"`
			}
			_ = json.Unmarshal(msg, &id)
			s.send(ctx, sess, protocol.AckMsg{
				Type: protocol.TypeAck, ProtocolVersion: protocol.Version, ID: id.ID,
				Code: protocol.ErrProtoBadRequest, Message: err.Error(), ServerTick: s.world.CurrentTick(),
			})
			return
		}
		var cmd protocol.CmdMsg
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(ctx, sess, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		s.send(ctx, sess, s.submit(ctx, sess.id, cmd))

	case protocol.TypeSubscribe:
		if err := protocol.Validate(protocol.TypeSubscribe, msg); err != nil {
			s.sendError(ctx, sess, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		var sub protocol.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			s.sendError(ctx, sess, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		var filter map[[3]int]bool
		if len(sub.Positions) > 0 {
			filter = make(map[[3]int]bool, len(sub.Positions))
			for _, p := range sub.Positions {
				filter[p] = true
			}
		}
		sess.filter.Store(&filter)
		if sess.subscribed.Swap(true) {
			return
		}
		updates := make(chan world.TickUpdate, 4)
		if err := s.world.AddObserver(ctx, sess.id, updates); err != nil {
			sess.subscribed.Store(false)
			s.sendError(ctx, sess, protocol.ErrWorldBusy, "subscribe failed")
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.forwardState(ctx, sess, updates)
		}()

	default:
		log.Debug("unexpected message", zap.String("type", base.Type))
		s.sendError(ctx, sess, protocol.ErrProtoBadRequest, "unexpected message type")
	}
}

func (s *Server) submit(ctx context.Context, sessionID string, m protocol.CmdMsg) protocol.AckMsg {
	ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, ID: m.ID}
	subCtx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()
	res, err := s.world.Submit(subCtx, toCommand(sessionID, m))
	ack.ServerTick = s.world.CurrentTick()
	if err != nil {
		ack.Code = s.wireCode(codeFor(err))
		ack.Message = err.Error()
		return ack
	}
	ack.Accepted = res.Accepted
	ack.Code = s.wireCode(codeFor(res.Err))
	ack.Message = res.Message
	ack.Item = fromStack(res.Item)
	return ack
}

// wireCode keeps codes outside the protocol's table off the wire.
func (s *Server) wireCode(code string) string {
	if protocol.IsKnownCode(code) {
		return code
	}
	s.log.Warn("unknown error code replaced", zap.String("code", code))
	return protocol.ErrInternal
}

func (s *Server) forwardState(ctx context.Context, sess *session, updates <-chan world.TickUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			var filter map[[3]int]bool
			if f := sess.filter.Load(); f != nil {
				filter = *f
			}
			msg := protocol.StateMsg{
				Type:            protocol.TypeState,
				ProtocolVersion: protocol.Version,
				Tick:            u.Tick,
				Digest:          u.Digest,
				Devices:         make([]protocol.DeviceState, 0, len(u.Devices)),
			}
			for _, d := range u.Devices {
				if filter != nil && !filter[d.Pos] {
					continue
				}
				msg.Devices = append(msg.Devices, fromDevice(d))
			}
			s.sendLatest(sess, msg)
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return nil
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		s.log.Debug("bad hello", zap.Error(err))
		closePolicy(conn, "bad HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return nil
	}

	sess := &session{out: make(chan []byte, outQueue), state: make(chan []byte, 2)}
	token := strings.TrimSpace(hello.ResumeToken)
	s.mu.Lock()
	if id, ok := s.resumes[token]; ok && token != "" {
		sess.id = id
	} else {
		sess.id = uuid.NewString()
		token = "resume_" + uuid.NewString()
		s.resumes[token] = sess.id
	}
	s.mu.Unlock()

	cfg := s.world.Config()
	cats := s.world.Catalogs()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		ResumeToken:     token,
		WorldID:         cfg.ID,
		WorldParams: protocol.WorldParams{
			TickRateHz: cfg.TickRateHz,
			ChunkSize:  [2]int{mathx.ChunkSize, mathx.ChunkSize},
			BottomY:    cfg.BottomY,
			Height:     cfg.Height,
			Seed:       cfg.Seed,
		},
		Catalogs: protocol.CatalogDigests{
			BlockPalette: cats.Blocks.PaletteDigest,
			BlockDefs:    cats.Blocks.DefsDigest,
			ItemDefs:     cats.Items.DefsDigest,
		},
	}
	stateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	devices, tick, err := s.world.RequestState(stateCtx)
	cancel()
	if err != nil {
		s.log.Warn("welcome without device list", zap.Error(err))
		tick = s.world.CurrentTick()
	}
	welcome.Tick = tick
	for _, d := range devices {
		welcome.Devices = append(welcome.Devices, fromDevice(d))
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}
	return sess
}

func (s *Server) send(ctx context.Context, sess *session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal", zap.Error(err))
		return
	}
	select {
	case sess.out <- b:
	case <-ctx.Done():
	}
}

// sendLatest never blocks; when the state queue is full the oldest update is dropped.
func (s *Server) sendLatest(sess *session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case sess.state <- b:
		return
	default:
	}
	select {
	case <-sess.state:
	default:
	}
	select {
	case sess.state <- b:
	default:
	}
}

func (s *Server) sendError(ctx context.Context, sess *session, code, message string) {
	s.send(ctx, sess, protocol.ErrorMsg{
		Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: s.wireCode(code), Message: message,
	})
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(conn, b)
}

func writeRaw(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

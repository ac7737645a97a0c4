// Package session runs the per-connection protocol of the live chat channel:
// authenticate, join a room, replay recent history, then relay messages
// until the connection ends.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"roomchat/contract"
	"roomchat/domain"
	"roomchat/errors"
	"roomchat/moderation"
	"roomchat/observability"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Transport is the connection a session drives. *Conn implements it.
type Transport interface {
	contract.Peer
	ReadMessage() ([]byte, error)
	Done() <-chan struct{}
}

type Authenticator interface {
	Authenticate(token string) (domain.User, error)
}

// Censor rewrites inbound content before it is stored and reports the
// forbidden words it masked.
type Censor interface {
	Censor(content string) (string, []string)
}

type Config struct {
	HistoryLimit int
	// MaxContentLength caps content in runes. Zero means no cap.
	MaxContentLength int
	// RateBurst messages may arrive at once, then one per RateInterval.
	// Messages over the limit are discarded. Zero disables limiting.
	RateBurst    int
	RateInterval time.Duration
}

// DefaultConfig primes ten messages and relays every message it receives.
func DefaultConfig() Config {
	return Config{HistoryLimit: 10}
}

// Handler holds what every session shares. It is safe for concurrent use.
type Handler struct {
	log      *slog.Logger
	auth     Authenticator
	rooms    contract.IRoomRepository
	messages contract.IMessageRepository
	registry contract.IRegistry
	metrics  *observability.Metrics
	censor   Censor
	cfg      Config
}

func NewHandler(log *slog.Logger, auth Authenticator, rooms contract.IRoomRepository,
	messages contract.IMessageRepository, registry contract.IRegistry,
	metrics *observability.Metrics, cfg Config) *Handler {
	return &Handler{
		log:      log,
		auth:     auth,
		rooms:    rooms,
		messages: messages,
		registry: registry,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// WithCensor enables content moderation for new sessions.
func (h *Handler) WithCensor(censor Censor) *Handler {
	h.censor = censor
	return h
}

// Serve runs one session to completion on an already upgraded connection and
// returns the close code it ended with. Cancelling ctx closes the connection
// with a going-away code.
func (h *Handler) Serve(ctx context.Context, conn Transport, roomID domain.RoomID, token string) int {
	s := &session{
		h:      h,
		conn:   conn,
		roomID: roomID,
		state:  Connecting,
		log:    h.log.With("room_id", roomID, "peer", conn.ID()),
	}
	stop := context.AfterFunc(ctx, func() {
		conn.Close(domain.CloseGoingAway, "server shutting down")
	})
	defer stop()

	s.transition(Authenticating)
	err := s.run(token)
	if ctx.Err() != nil {
		err = fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return s.close(err)
}

type session struct {
	h      *Handler
	conn   Transport
	roomID domain.RoomID
	user   domain.User
	joined bool
	state  State
	log    *slog.Logger
}

func (s *session) run(token string) error {
	user, err := s.h.auth.Authenticate(token)
	if err != nil {
		return err
	}
	s.user = user
	s.log = s.log.With("user", user.Username)
	s.transition(JoiningRoom)

	if _, err = s.h.rooms.GetRoom(s.roomID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return fmt.Errorf("room %d: %w", s.roomID, err)
		}
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	s.h.registry.Join(s.roomID, s.conn)
	s.joined = true
	if err = s.h.rooms.AddMember(s.roomID, user.ID); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if err = s.prime(); err != nil {
		return err
	}
	s.transition(Active)
	s.log.Info("Session active")

	limiter := s.h.limiter()
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			return readError(err)
		}
		if limiter != nil && !limiter.Allow() {
			s.log.Warn("Rate limit exceeded, discarding message")
			continue
		}
		if err = s.relay(data); err != nil {
			return err
		}
	}
}

// prime replays the most recent messages, oldest first.
func (s *session) prime() error {
	history, err := s.h.messages.ListRecentMessages(s.roomID, s.h.cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	for i := len(history) - 1; i >= 0; i-- {
		payload, err := json.Marshal(history[i].ToFrame())
		if err != nil {
			return err
		}
		if err = s.conn.Send(payload); err != nil {
			return fmt.Errorf("%w: priming: %v", errors.ErrDisconnected, err)
		}
	}
	return nil
}

// relay handles one inbound frame: decode, persist, then broadcast.
// Nothing is broadcast unless the write succeeded.
func (s *session) relay(data []byte) error {
	var in domain.InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedInput, err)
	}
	if in.Content == nil {
		return fmt.Errorf("%w: missing content", errors.ErrMalformedInput)
	}
	content := *in.Content
	if limit := s.h.cfg.MaxContentLength; limit > 0 && len([]rune(content)) > limit {
		return fmt.Errorf("%w: content longer than %d characters", errors.ErrMalformedInput, limit)
	}
	if s.h.censor != nil {
		var words []string
		if content, words = s.h.censor.Censor(content); len(words) > 0 {
			s.log.Info("Content censored", "words", len(words))
		}
	}

	msg, err := s.h.messages.InsertMessage(s.roomID, s.user, content)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	s.h.metrics.MessagePersisted(moderation.DetectLanguage(content))

	payload, err := json.Marshal(msg.ToFrame())
	if err != nil {
		return err
	}
	s.h.registry.Broadcast(s.roomID, payload)
	return nil
}

func (h *Handler) limiter() *rate.Limiter {
	if h.cfg.RateBurst <= 0 || h.cfg.RateInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(h.cfg.RateInterval), h.cfg.RateBurst)
}

func (s *session) close(cause error) int {
	s.transition(Closing)
	code, reason := closeFor(cause)
	if s.joined {
		s.h.registry.Leave(s.roomID, s.conn)
	}

	switch code {
	case domain.CloseNormalClosure, domain.CloseGoingAway:
		s.log.Info("Session ended", "cause", cause)
	default:
		s.log.Warn("Session closed abnormally", "code", code, "error", cause)
	}

	s.conn.Close(code, reason)
	<-s.conn.Done()
	s.transition(Closed)
	s.h.metrics.SessionClosed(code)
	return code
}

func (s *session) transition(to State) {
	if !canTransition(s.state, to) {
		s.log.Error("Illegal session transition", "from", s.state.String(), "to", to.String())
		return
	}
	s.log.Debug("Session state", "from", s.state.String(), "to", to.String())
	s.state = to
}

// readError classifies a failed read. An oversized frame is bad input,
// anything else means the transport is gone.
func readError(err error) error {
	if errors.Is(err, websocket.ErrReadLimit) {
		return fmt.Errorf("%w: %v", errors.ErrMalformedInput, err)
	}
	return fmt.Errorf("%w: %v", errors.ErrDisconnected, err)
}

package runtime

import (
	"fmt"
	"log/slog"
	"roomchat/domain"
	"roomchat/errors"
	"roomchat/mocks"
	"roomchat/observability"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// Peer records every payload it accepts.
type Peer struct {
	id       string
	mu       sync.Mutex
	received [][]byte
	closed   []int
}

func newPeer() *Peer { return &Peer{id: uuid.NewString()} }

func (p *Peer) ID() string { return p.id }

func (p *Peer) Send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, payload)
	return nil
}

func (p *Peer) Close(code int, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, code)
}

func (p *Peer) Received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.received))
	for _, payload := range p.received {
		out = append(out, string(payload))
	}
	return out
}

func newRegistry() *Registry {
	return NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), observability.NewMetrics())
}

func TestRegistry_Join_One_Room_Multiple_Peers(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	roomID := domain.RoomID(7)
	peer1, peer2 := newPeer(), newPeer()

	// Given no room exists
	req.Zero(registry.Rooms())
	req.Empty(registry.Peers(roomID))

	// When two peers join the same room
	registry.Join(roomID, peer1)
	registry.Join(roomID, peer2)

	// Then the room bucket holds both
	req.Equal(1, registry.Rooms())
	req.ElementsMatch([]any{peer1, peer2}, toAny(registry.Peers(roomID)))
}

func TestRegistry_Join_Same_Peer_Twice_Is_One_Entry(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	peer := newPeer()

	registry.Join(1, peer)
	registry.Join(1, peer)

	req.Len(registry.Peers(1), 1)
	req.Equal(1, registry.Broadcast(1, []byte("once")))
	req.Equal([]string{"once"}, peer.Received())
}

func TestRegistry_Leave_Prunes_Empty_Room(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	peer1, peer2 := newPeer(), newPeer()

	registry.Join(1, peer1)
	registry.Join(1, peer2)
	registry.Join(2, newPeer())

	// When a peer leaves
	registry.Leave(1, peer1)

	// Then only the other one is left
	req.ElementsMatch([]any{peer2}, toAny(registry.Peers(1)))

	// When the last peer leaves
	registry.Leave(1, peer2)

	// Then the room is gone and the other room is untouched
	req.Empty(registry.Peers(1))
	req.Equal(1, registry.Rooms())
	req.Len(registry.Peers(2), 1)
}

func TestRegistry_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	peer, other := newPeer(), newPeer()
	registry.Join(7, peer)
	registry.Join(7, other)

	registry.Leave(7, peer)
	req.NotPanics(func() { registry.Leave(7, peer) })
	req.NotPanics(func() { registry.Leave(404, peer) })

	req.ElementsMatch([]any{other}, toAny(registry.Peers(7)))
}

func TestRegistry_Broadcast_Reaches_Every_Peer_In_Room_Only(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	a, b, elsewhere := newPeer(), newPeer(), newPeer()
	registry.Join(7, a)
	registry.Join(7, b)
	registry.Join(8, elsewhere)

	delivered := registry.Broadcast(7, []byte("hi"))

	req.Equal(2, delivered)
	req.Equal([]string{"hi"}, a.Received())
	req.Equal([]string{"hi"}, b.Received())
	req.Empty(elsewhere.Received())
	req.Zero(registry.Broadcast(404, []byte("nobody")))
}

func TestRegistry_Broadcast_Skips_Later_And_Departed_Peers(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	early, departed, late := newPeer(), newPeer(), newPeer()
	registry.Join(7, early)
	registry.Join(7, departed)

	registry.Leave(7, departed)
	registry.Broadcast(7, []byte("first"))
	registry.Join(7, late)
	registry.Broadcast(7, []byte("second"))

	req.Equal([]string{"first", "second"}, early.Received())
	req.Empty(departed.Received())
	req.Equal([]string{"second"}, late.Received())
}

func TestRegistry_Broadcast_Isolates_Failing_Peer(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := newRegistry()

	healthy := []*Peer{newPeer(), newPeer(), newPeer()}
	for _, peer := range healthy {
		registry.Join(7, peer)
	}

	// Given one peer whose send always fails
	broken := mocks.NewMockPeer(ctrl)
	broken.EXPECT().ID().Return("broken").AnyTimes()
	broken.EXPECT().Send(gomock.Any()).Return(errors.ErrSendBufferFull).Times(1)
	broken.EXPECT().Close(domain.CloseInternalError, gomock.Any()).Times(1)
	registry.Join(7, broken)

	// When a message is broadcast
	delivered := registry.Broadcast(7, []byte("hi"))

	// Then the N-1 healthy peers got it and the broken one was dropped
	req.Equal(len(healthy), delivered)
	for _, peer := range healthy {
		req.Equal([]string{"hi"}, peer.Received())
	}
	req.Len(registry.Peers(7), len(healthy))

	// And later broadcasts never touch it again
	req.Equal(len(healthy), registry.Broadcast(7, []byte("again")))
}

func TestRegistry_Concurrent_Join_Leave_Broadcast(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	const rooms, perRoom = 4, 50

	kept := make(map[domain.RoomID][]any)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for room := 0; room < rooms; room++ {
		roomID := domain.RoomID(room)
		for i := 0; i < perRoom; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				peer := newPeer()
				registry.Join(roomID, peer)
				registry.Broadcast(roomID, []byte(fmt.Sprintf("%d", i)))
				if i%2 == 0 {
					registry.Leave(roomID, peer)
					registry.Leave(roomID, peer)
					return
				}
				mu.Lock()
				kept[roomID] = append(kept[roomID], peer)
				mu.Unlock()
			}(i)
		}
	}
	wg.Wait()

	// Then each bucket holds exactly the joined-but-not-left peers
	req.Equal(rooms, registry.Rooms())
	for roomID, peers := range kept {
		req.ElementsMatch(peers, toAny(registry.Peers(roomID)))
	}
}

func TestRegistry_Concurrent_Churn_On_One_Room_Keeps_No_Phantoms(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			peer := newPeer()
			registry.Join(1, peer)
			registry.Leave(1, peer)
		}()
	}
	wg.Wait()

	req.Empty(registry.Peers(1))
	req.Zero(registry.Rooms())

	// And the room can be joined again after being pruned
	peer := newPeer()
	registry.Join(1, peer)
	req.Equal(1, registry.Broadcast(1, []byte("back")))
}

func TestRegistry_CloseAll(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	a, b := newPeer(), newPeer()
	registry.Join(1, a)
	registry.Join(2, b)

	registry.CloseAll(domain.CloseGoingAway, "shutdown")

	req.Equal([]int{domain.CloseGoingAway}, a.closed)
	req.Equal([]int{domain.CloseGoingAway}, b.closed)
}

func toAny[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

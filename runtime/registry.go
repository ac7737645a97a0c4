// Package runtime owns the live side of the chat: which connections listen
// to which room, and the fan-out of frames to them.
package runtime

import (
	"log/slog"
	"roomchat/contract"
	"roomchat/domain"
	"roomchat/observability"
	"sync"
)

// bucket is the live-connection set of one room. It holds non-owning
// references: closing a peer is its session's job.
type bucket struct {
	mu    sync.RWMutex
	peers map[contract.Peer]struct{}
	// dead is set once the bucket is unlinked from the registry map.
	dead bool
}

// Registry maps rooms to buckets. The map lock only guards bucket lookup and
// pruning; joins, leaves and broadcasts on different rooms never contend.
//
// Lock order is registry then bucket. Nothing acquires the registry lock while
// holding a bucket lock.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomID]*bucket
	log     *slog.Logger
	metrics *observability.Metrics
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry(log *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		rooms:   make(map[domain.RoomID]*bucket),
		log:     log,
		metrics: metrics,
	}
}

// Join adds peer to the room's bucket, creating the bucket if absent.
// The same user may join several times with distinct peers.
func (r *Registry) Join(roomID domain.RoomID, peer contract.Peer) {
	for {
		b := r.bucketFor(roomID)
		b.mu.Lock()
		if b.dead {
			// Pruned between lookup and lock, look again.
			b.mu.Unlock()
			continue
		}
		_, already := b.peers[peer]
		b.peers[peer] = struct{}{}
		size := len(b.peers)
		b.mu.Unlock()

		if !already {
			r.metrics.ConnectionJoined()
		}
		r.log.Debug("Peer joined room", "room_id", roomID, "peer", peer.ID(), "room_size", size)
		return
	}
}

// Leave removes peer from the room's bucket. Removing an absent peer is a no-op.
func (r *Registry) Leave(roomID domain.RoomID, peer contract.Peer) {
	b := r.lookup(roomID)
	if b == nil {
		return
	}

	b.mu.Lock()
	if _, ok := b.peers[peer]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.peers, peer)
	size := len(b.peers)
	b.mu.Unlock()

	r.metrics.ConnectionLeft()
	r.log.Debug("Peer left room", "room_id", roomID, "peer", peer.ID(), "room_size", size)
	if size == 0 {
		r.prune(roomID, b)
	}
}

// Broadcast queues payload to every peer in the room at call time and
// returns how many accepted it. It never fails: a peer whose Send errors is
// removed and closed, the others are unaffected.
//
// The bucket read lock is held while sending. Peer.Send does not block, so
// this stays O(room size), and a peer removed by Leave can never receive a
// later broadcast.
func (r *Registry) Broadcast(roomID domain.RoomID, payload []byte) int {
	b := r.lookup(roomID)
	if b == nil {
		return 0
	}

	var failed []contract.Peer
	delivered := 0
	b.mu.RLock()
	for peer := range b.peers {
		if err := peer.Send(payload); err != nil {
			r.log.Warn("Dropping peer after failed send", "room_id", roomID, "peer", peer.ID(), "error", err)
			failed = append(failed, peer)
			continue
		}
		delivered++
	}
	b.mu.RUnlock()

	for _, peer := range failed {
		r.Leave(roomID, peer)
		peer.Close(domain.CloseInternalError, "send failed")
	}
	r.metrics.Broadcast(delivered, len(failed))
	return delivered
}

// Peers returns a snapshot of the room's bucket.
func (r *Registry) Peers(roomID domain.RoomID) []contract.Peer {
	b := r.lookup(roomID)
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	peers := make([]contract.Peer, 0, len(b.peers))
	for peer := range b.peers {
		peers = append(peers, peer)
	}
	return peers
}

// Rooms returns the number of rooms with at least one live peer.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CloseAll closes every registered peer with code. Their sessions leave the
// registry on their own as they wind down.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.RLock()
	buckets := make([]*bucket, 0, len(r.rooms))
	for _, b := range r.rooms {
		buckets = append(buckets, b)
	}
	r.mu.RUnlock()

	var peers []contract.Peer
	for _, b := range buckets {
		b.mu.RLock()
		for peer := range b.peers {
			peers = append(peers, peer)
		}
		b.mu.RUnlock()
	}
	for _, peer := range peers {
		peer.Close(code, reason)
	}
	r.log.Info("Closed all peers", "count", len(peers), "code", code)
}

func (r *Registry) lookup(roomID domain.RoomID) *bucket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

func (r *Registry) bucketFor(roomID domain.RoomID) *bucket {
	if b := r.lookup(roomID); b != nil {
		return b
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rooms[roomID]
	if !ok {
		b = &bucket{peers: make(map[contract.Peer]struct{})}
		r.rooms[roomID] = b
		r.metrics.RoomsActive(len(r.rooms))
	}
	return b
}

// prune unlinks an empty bucket. A Join that raced in first keeps it alive.
func (r *Registry) prune(roomID domain.RoomID, b *bucket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.peers) != 0 || r.rooms[roomID] != b {
		return
	}
	b.dead = true
	delete(r.rooms, roomID)
	r.metrics.RoomsActive(len(r.rooms))
}

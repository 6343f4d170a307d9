package network

import (
	"go.uber.org/zap"

	"github.com/blaesus/ctbc/pkg/wire/payload"
)

// exchangeData drives the steady-state block and header sync. Every active
// peer whose announced chain height is ahead of our own header tip gets a
// getheaders anchored at that tip, independent of block fetching. Separately,
// each idle (not already requesting) peer is handed exactly one distinct
// missing block hash to fetch via getdata, so no two peers ever chase the
// same block and no peer ever has more than one request outstanding.
func (s *Server) exchangeData() {
	peers := s.pool.ActivePeers()

	idle := 0
	for _, peer := range peers {
		if !peer.IsRequesting() {
			idle++
		}
	}
	missing := s.chain.FindMissingBlocks(idle)

	blockIndex := 0
	tip := s.chain.TipHash()
	localHeight := s.chain.HeaderHeight()
	for _, peer := range peers {
		if peer.ChainHeight > localHeight {
			s.send(peer, payload.NewGetHeaders(s.cfg.ProtocolVersion, []payload.Hash{tip}, payload.Hash{}))
		}
		if peer.IsRequesting() || blockIndex >= len(missing) {
			continue
		}
		hash := missing[blockIndex]
		blockIndex++
		peer.Requesting = hash
		s.send(peer, &payload.GetDataPayload{Items: []*payload.InventoryVector{
			{Type: payload.InventoryTypeBlock, Hash: hash},
		}})
	}
}

// recomputeIBDMode recomputes whether this node still believes it is in
// initial block download: true whenever the best height any peer has
// announced is more than the configured tolerance ahead of our own header
// height. Flipping out of IBD mode grows the pool's target size on the
// next fillSlots; flipping into it shrinks the target but does not by
// itself close any already-active connection.
func (s *Server) recomputeIBDMode() {
	peerMax := s.chain.MaxFullBlockHeight()
	local := s.chain.HeaderHeight()

	behind := peerMax > local && peerMax-local > s.cfg.IBDPeerMaxBlockDifference
	changed := s.pool.SetIBDMode(behind)
	if changed {
		s.log.Info("IBD mode changed", zap.Bool("ibd", behind),
			zap.Uint32("local_header_height", local), zap.Uint32("peer_max_height", peerMax))
		if s.metrics != nil {
			if behind {
				s.metrics.IBDMode.Set(1)
			} else {
				s.metrics.IBDMode.Set(0)
			}
		}
	}
	s.fillSlots()
}

// checkLiveness enforces the handshake timeout and the peer-life timeout.
// A handshake that never completes in time disables its candidate, since
// the remote end demonstrably failed to finish a basic protocol exchange.
// A peer that simply lived out its configured lifespan is replaced without
// penalty: it did nothing wrong, it just aged out.
func (s *Server) checkLiveness() {
	now := s.clock.Now()
	for _, peer := range s.pool.slots {
		switch peer.State {
		case StateHandshakeHalf:
			if now.Sub(peer.Handshake.Start) > s.cfg.Tolerances.Handshake {
				s.log.Info("handshake timed out, disabling candidate", zap.Int("slot", peer.Index))
				s.replacePeer(peer.Index, true)
			}
		case StateActive:
			if now.Sub(peer.ConnectionStart) > s.cfg.Tolerances.PeerLife {
				s.log.Debug("peer reached its life limit", zap.Int("slot", peer.Index))
				s.replacePeer(peer.Index, false)
			}
		}
	}
}

// pingActivePeers sends a fresh ping to every active peer, regardless of
// whether a previous ping is still unanswered: a pending ping's age is
// recorded as an overdue latency sample first, so a single slow pong still
// yields a measurement instead of suppressing all future sampling for that
// peer.
func (s *Server) pingActivePeers() {
	now := s.clock.Now()
	for _, peer := range s.pool.ActivePeers() {
		if peer.Ping.Pending {
			overdue := peer.RecordOverduePing(now)
			if peer.CandidateKey != "" {
				s.registry.RecordLatency(peer.CandidateKey, overdue)
			}
			if s.metrics != nil {
				s.metrics.PingRTT.Observe(overdue.Seconds())
			}
		}
		peer.Ping.Nonce = s.rnd.Uint64()
		s.send(peer, &payload.PingPayload{Nonce: peer.Ping.Nonce})
	}
}

// printNodeStatus logs a one-line summary of pool occupancy and sync
// progress, the steady-state heartbeat an operator watches.
func (s *Server) printNodeStatus() {
	active := len(s.pool.ActivePeers())
	if s.metrics != nil {
		s.metrics.PeerCount.Set(float64(s.pool.BoundCount()))
		s.metrics.ActivePeerCount.Set(float64(active))
		s.metrics.CandidateCount.Set(float64(s.registry.Count()))
	}
	s.log.Info("node status",
		zap.Int("bound_peers", s.pool.BoundCount()),
		zap.Int("active_peers", active),
		zap.Int("candidates", s.registry.Count()),
		zap.Bool("ibd_mode", s.pool.IBDMode()),
		zap.Uint32("block_height", s.chain.BlockHeight()),
		zap.Uint32("header_height", s.chain.HeaderHeight()),
	)
}

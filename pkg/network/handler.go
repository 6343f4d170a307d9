package network

import (
	"time"

	"go.uber.org/zap"

	"github.com/blaesus/ctbc/pkg/wire"
	"github.com/blaesus/ctbc/pkg/wire/payload"
)

// maxGetDataBatch bounds how many inventory items a single getdata request
// asks for, avoiding answering a large inv with an equally large demand.
const maxGetDataBatch = 64

// addrGossipBackdate is subtracted from a freshly-learned address's
// timestamp before it is recorded, so a peer that just told us about an
// address doesn't look more recently verified than it actually is.
const addrGossipBackdate = 2 * time.Hour

func (s *Server) dispatch(peer *Peer, msg *wire.Message) {
	switch p := msg.Payload.(type) {
	case *payload.VersionPayload:
		s.handleVersion(peer, p)
	case *payload.VerackPayload:
		s.handleVerack(peer)
	case *payload.AddressList:
		s.handleAddr(peer, p)
	case *payload.InvPayload:
		s.handleInv(peer, p)
	case *payload.GetDataPayload:
		s.handleGetData(peer, p)
	case *payload.PingPayload:
		s.handlePing(peer, p)
	case *payload.PongPayload:
		s.handlePong(peer, p)
	case *payload.HeadersPayload:
		s.handleHeaders(peer, p)
	case *payload.BlockPayload:
		s.handleBlock(peer, p)
	case *payload.RejectPayload:
		s.log.Debug("peer rejected our message",
			zap.Int("slot", peer.Index), zap.String("command", p.RejectedCommand), zap.String("reason", p.Reason))
	}
}

func (s *Server) send(peer *Peer, p payload.Payload) {
	raw, err := wire.Encode(wire.Magic(s.cfg.Magic), p)
	if err != nil {
		s.log.Warn("failed to encode outgoing message",
			zap.Int("slot", peer.Index), zap.String("command", p.Command()), zap.Error(err))
		return
	}
	conn, ok := s.conns[peer.Index]
	if !ok {
		return
	}
	if s.metrics != nil {
		s.metrics.MessagesSent.WithLabelValues(p.Command()).Inc()
	}
	conn.Send(p.Command(), raw)
}

func (s *Server) sendVersion(peer *Peer) {
	s.send(peer, &payload.VersionPayload{
		ProtocolVersion: s.cfg.ProtocolVersion,
		Services:        s.cfg.Services,
		Timestamp:       s.clock.Now().Unix(),
		AddrFrom:        payload.NetAddr{Services: s.cfg.Services},
		Nonce:           s.rnd.Uint64(),
		UserAgent:       s.cfg.UserAgent,
		StartHeight:     s.chain.BlockHeight(),
		Relay:           true,
	})
}

// handleVersion validates the peer's announced protocol version and
// records what it told us about itself, then acknowledges with verack.
// Acceptance in this direction is recorded as soon as the version is
// accepted, at the moment the verack is enqueued.
func (s *Server) handleVersion(peer *Peer, v *payload.VersionPayload) {
	if v.ProtocolVersion < s.cfg.ProtocolVersion {
		s.log.Debug("peer protocol version too old, replacing",
			zap.Int("slot", peer.Index), zap.Uint32("version", v.ProtocolVersion))
		s.replacePeer(peer.Index, true)
		return
	}
	peer.Services = v.Services
	peer.ChainHeight = v.StartHeight
	s.chain.RecordPeerHeight(v.StartHeight)
	peer.Handshake.UsAcceptThem = true
	s.send(peer, &payload.VerackPayload{})
	s.maybeCompleteHandshake(peer)
}

// handleVerack marks the peer as having accepted our version announcement.
func (s *Server) handleVerack(peer *Peer) {
	peer.Handshake.ThemAcceptUs = true
	s.maybeCompleteHandshake(peer)
}

func (s *Server) maybeCompleteHandshake(peer *Peer) {
	if peer.State != StateHandshakeHalf || !peer.Handshake.complete() {
		return
	}
	peer.State = StateActive
	s.log.Info("handshake complete", zap.Int("slot", peer.Index), zap.String("address", peer.Address.Key()))

	if s.registry.Count() < s.cfg.GetAddrThreshold {
		s.send(peer, &payload.GetAddrPayload{})
	}

	peer.Ping.Nonce = s.rnd.Uint64()
	s.send(peer, &payload.PingPayload{Nonce: peer.Ping.Nonce})
}

// handlePing answers every ping with a pong echoing the same nonce; a
// connection never refuses to answer a liveness check.
func (s *Server) handlePing(peer *Peer, p *payload.PingPayload) {
	s.send(peer, &payload.PongPayload{Nonce: p.Nonce})
}

// handlePong matches a returned nonce against the one outstanding ping and
// folds the measured round trip into both the peer's own ring buffer and
// its candidate's running average latency.
func (s *Server) handlePong(peer *Peer, p *payload.PongPayload) {
	rtt, ok := peer.RecordPong(p.Nonce, s.clock.Now())
	if !ok {
		return
	}
	if peer.CandidateKey != "" {
		s.registry.RecordLatency(peer.CandidateKey, rtt)
	}
	if s.metrics != nil {
		s.metrics.PingRTT.Observe(rtt.Seconds())
	}
}

// handleAddr records every IPv4 address the peer offers, backdating each
// timestamp slightly since a gossiped sighting is never as trustworthy as a
// direct one.
func (s *Server) handleAddr(peer *Peer, a *payload.AddressList) {
	for _, entry := range a.Addrs {
		if !entry.Addr.IsIPv4() {
			continue
		}
		seen := time.Unix(int64(entry.Timestamp), 0).Add(-addrGossipBackdate)
		s.registry.Add(entry.Addr, seen)
	}
}

// handleInv asks for the full contents of the advertised blocks (up to
// maxGetDataBatch of them; other inventory types are ignored), capped to one
// outstanding getdata request per peer.
func (s *Server) handleInv(peer *Peer, inv *payload.InvPayload) {
	if peer.IsRequesting() {
		return
	}
	var blocks []*payload.InventoryVector
	for _, item := range inv.Items {
		if item.Type == payload.InventoryTypeBlock {
			blocks = append(blocks, item)
		}
		if len(blocks) >= maxGetDataBatch {
			break
		}
	}
	if len(blocks) == 0 {
		return
	}
	peer.Requesting = blocks[0].Hash
	s.send(peer, &payload.GetDataPayload{Items: blocks})
}

func (s *Server) handleGetData(peer *Peer, g *payload.GetDataPayload) {
	// Serving block bodies to peers is the chain collaborator's concern;
	// the handler only logs the request here since no local storage of
	// served content is modeled.
	s.log.Debug("peer requested data", zap.Int("slot", peer.Index), zap.Int("count", len(g.Items)))
}

func (s *Server) handleHeaders(peer *Peer, h *payload.HeadersPayload) {
	for _, header := range h.Headers {
		if err := s.chain.ProcessHeader(header); err != nil {
			s.log.Warn("failed to process header", zap.Error(err))
			return
		}
	}
}

func (s *Server) handleBlock(peer *Peer, b *payload.BlockPayload) {
	peer.Requesting = payload.Hash{}
	if err := s.chain.ProcessBlock(b); err != nil {
		s.log.Warn("failed to process block", zap.Int("slot", peer.Index), zap.Error(err))
	}
}

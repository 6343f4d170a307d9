package network

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blaesus/ctbc/pkg/config"
	wireio "github.com/blaesus/ctbc/pkg/io"
	"github.com/blaesus/ctbc/pkg/wire"
	"github.com/blaesus/ctbc/pkg/wire/payload"
)

type fakeChain struct {
	blockHeight, headerHeight, peerMax uint32
	tip                                payload.Hash
	missing                            []payload.Hash
}

func (c *fakeChain) BlockHeight() uint32        { return c.blockHeight }
func (c *fakeChain) HeaderHeight() uint32       { return c.headerHeight }
func (c *fakeChain) TipHash() payload.Hash      { return c.tip }
func (c *fakeChain) MaxFullBlockHeight() uint32 { return c.peerMax }
func (c *fakeChain) RecordPeerHeight(h uint32) {
	if h > c.peerMax {
		c.peerMax = h
	}
}
func (c *fakeChain) FindMissingBlocks(limit int) []payload.Hash {
	if limit > len(c.missing) {
		limit = len(c.missing)
	}
	return append([]payload.Hash{}, c.missing[:limit]...)
}
func (c *fakeChain) ProcessHeader(h *payload.BlockHeader) error {
	c.headerHeight = h.Height
	c.tip = h.Hash()
	return nil
}
func (c *fakeChain) ProcessBlock(b *payload.BlockPayload) error {
	c.blockHeight = b.Header.Height
	return nil
}
func (c *fakeChain) SaveChainData() error { return nil }

func testConfig() *config.NodeConfig {
	cfg := config.Default()
	cfg.MaxOutgoing = 1
	cfg.MaxOutgoingIBD = 1
	cfg.AdminPort = 0
	cfg.StreamBufferCapacity = 4096
	cfg.Tolerances.Handshake = 50 * time.Millisecond
	cfg.Tolerances.PeerLife = time.Hour
	cfg.Periods = config.Periods{} // every scheduled task disabled unless a test opts in
	return cfg
}

// readWireMessage reads exactly one framed message off conn, blocking until
// it arrives.
func readWireMessage(t *testing.T, conn net.Conn) *wire.Message {
	t.Helper()
	header := make([]byte, wire.HeaderSize)
	_, err := readFull(conn, header)
	require.NoError(t, err)
	h := wire.ParseHeader(header)
	body := make([]byte, h.Length)
	_, err = readFull(conn, body)
	require.NoError(t, err)
	msg, err := wire.Decode(h, body)
	require.NoError(t, err)
	return msg
}

// readRawWireMessage reads one framed message's command and raw body
// without decoding the payload, for commands wire.Decode doesn't know how
// to receive (this node only ever sends them).
func readRawWireMessage(t *testing.T, conn net.Conn) (string, []byte) {
	t.Helper()
	header := make([]byte, wire.HeaderSize)
	_, err := readFull(conn, header)
	require.NoError(t, err)
	h := wire.ParseHeader(header)
	body := make([]byte, h.Length)
	_, err = readFull(conn, body)
	require.NoError(t, err)
	return h.CommandString(), body
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func writeWireMessage(t *testing.T, conn net.Conn, p payload.Payload) {
	t.Helper()
	raw, err := wire.Encode(wire.MagicMainnet, p)
	require.NoError(t, err)
	_, err = conn.Write(raw)
	require.NoError(t, err)
}

// TestHandshakeAndPingScenario exercises a full outgoing connection: dial,
// version/verack in both directions, then a ping answered with a matching
// pong.
func TestHandshakeAndPingScenario(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	c := &fakeChain{}
	s := NewServer(cfg, zap.NewNop(), SystemClock, c, nil)

	addr := ipv4LoopbackAddr(t, ln.Addr().(*net.TCPAddr).Port)
	s.SeedAddress(addr)

	go s.Run()
	defer s.Stop()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	versionMsg := readWireMessage(t, conn)
	require.Equal(t, "version", versionMsg.Command)

	writeWireMessage(t, conn, &payload.VersionPayload{ProtocolVersion: cfg.ProtocolVersion, StartHeight: 10})
	verackMsg := readWireMessage(t, conn)
	require.Equal(t, "verack", verackMsg.Command)
	writeWireMessage(t, conn, &payload.VerackPayload{})

	// Completing the handshake makes the node ask for addresses (it knows
	// fewer candidates than GetAddrThreshold) and send its first ping.
	command, _ := readRawWireMessage(t, conn)
	require.Equal(t, "getaddr", command)
	require.Equal(t, "ping", readWireMessage(t, conn).Command)

	writeWireMessage(t, conn, &payload.PingPayload{Nonce: 555})
	pongMsg := readWireMessage(t, conn)
	require.Equal(t, "pong", pongMsg.Command)
	require.Equal(t, uint64(555), pongMsg.Payload.(*payload.PongPayload).Nonce)
}

// TestAtMostOneInFlightGetData ensures a second inv advertising more blocks
// while a getdata is already outstanding does not trigger a second request.
func TestAtMostOneInFlightGetData(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	c := &fakeChain{}
	s := NewServer(cfg, zap.NewNop(), SystemClock, c, nil)
	s.SeedAddress(ipv4LoopbackAddr(t, ln.Addr().(*net.TCPAddr).Port))

	go s.Run()
	defer s.Stop()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	readWireMessage(t, conn) // version
	writeWireMessage(t, conn, &payload.VersionPayload{ProtocolVersion: cfg.ProtocolVersion})
	readWireMessage(t, conn) // verack
	writeWireMessage(t, conn, &payload.VerackPayload{})
	readRawWireMessage(t, conn) // getaddr, sent on handshake completion
	readWireMessage(t, conn)    // first ping, sent on handshake completion

	hashA := payload.Hash{1}
	hashB := payload.Hash{2}
	writeWireMessage(t, conn, &payload.InvPayload{Items: []*payload.InventoryVector{
		{Type: payload.InventoryTypeBlock, Hash: hashA},
	}})
	first := readWireMessage(t, conn)
	require.Equal(t, "getdata", first.Command)
	require.Len(t, first.Payload.(*payload.GetDataPayload).Items, 1)

	writeWireMessage(t, conn, &payload.InvPayload{Items: []*payload.InventoryVector{
		{Type: payload.InventoryTypeBlock, Hash: hashB},
	}})

	// No second getdata should arrive while the first is still
	// outstanding; confirm by instead observing that a subsequent ping we
	// send gets answered (proving the connection is alive and idle, not
	// that it's silently queued a getdata we just haven't read yet).
	writeWireMessage(t, conn, &payload.PingPayload{Nonce: 1})
	next := readWireMessage(t, conn)
	require.Equal(t, "pong", next.Command, "a second getdata must not be sent while one is in flight")
}

// TestHandshakeTimeoutDisablesCandidate drives checkLiveness directly with
// a fake clock instead of waiting on a real timer, since the scheduler
// itself runs on the wall clock.
func TestHandshakeTimeoutDisablesCandidate(t *testing.T) {
	cfg := testConfig()
	clock := newFakeClock(time.Unix(1000, 0))
	c := &fakeChain{}
	s := NewServer(cfg, zap.NewNop(), clock, c, nil)

	addr := ipv4Addr(9, 9, 9, 9, 8333)
	s.registry.Add(addr, clock.Now())
	_, key, ok := s.registry.PickBestNonPeer(map[string]bool{}, ScoringConfig{LatencyTolerance: cfg.Tolerances.Latency})
	require.True(t, ok)
	s.pool.Bind(0, key)
	peer := s.pool.slots[0]
	peer.State = StateHandshakeHalf
	peer.Handshake.Start = clock.Now()

	clock.Advance(cfg.Tolerances.Handshake + time.Millisecond)
	s.checkLiveness()

	require.Equal(t, StateClosing, peer.State)
	cand, _ := s.registry.Get(key)
	require.Equal(t, CandidateDisabled, cand.Status)
}

// TestAdminKillShutsDownServer exercises the admin listener end to end
// against a running Server.
func TestAdminKillShutsDownServer(t *testing.T) {
	cfg := testConfig()
	c := &fakeChain{}
	s := NewServer(cfg, zap.NewNop(), SystemClock, c, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	require.Eventually(t, func() bool { return s.admin != nil }, time.Second, time.Millisecond)

	conn, err := net.Dial("tcp", s.admin.ln.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("KILL"))
	require.NoError(t, err)
	conn.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after KILL")
	}
}

func ipv4LoopbackAddr(t *testing.T, port int) payload.NetAddr {
	t.Helper()
	var addr payload.NetAddr
	addr.IP[10] = 0xff
	addr.IP[11] = 0xff
	addr.IP[12] = 127
	addr.IP[15] = 1
	addr.Port = uint16(port)
	return addr
}

// bindActivePeer wires slot i to a live in-memory connection already past
// the handshake, for tests that drive a scheduled task directly without
// running the full event loop (and so without racing it).
func bindActivePeer(t *testing.T, s *Server, i int, chainHeight uint32) net.Conn {
	t.Helper()
	serverSide, testSide := net.Pipe()
	pc := newPeerConn(i, serverSide, s.events, s.log)
	s.conns[i] = pc
	t.Cleanup(func() { pc.Close(); testSide.Close() })
	peer := s.pool.slots[i]
	peer.State = StateActive
	peer.ChainHeight = chainHeight
	return testSide
}

// TestExchangeDataGivesEachIdlePeerADistinctHash drives exchangeData
// directly against three active peers and two missing blocks: every idle
// peer must receive exactly one getdata naming a hash no other peer also
// received, and a peer whose announced chain height is ahead of our header
// tip must also receive a getheaders anchored at that tip, regardless of
// whether it was handed a block to fetch.
func TestExchangeDataGivesEachIdlePeerADistinctHash(t *testing.T) {
	cfg := testConfig()
	cfg.MaxOutgoing = 3
	cfg.MaxOutgoingIBD = 3
	hashA := payload.Hash{1}
	hashB := payload.Hash{2}
	tip := payload.Hash{0xAA}
	c := &fakeChain{headerHeight: 5, tip: tip, missing: []payload.Hash{hashA, hashB}}
	s := NewServer(cfg, zap.NewNop(), SystemClock, c, nil)

	connA := bindActivePeer(t, s, 0, 10) // ahead of our tip: expects getheaders too
	connB := bindActivePeer(t, s, 1, 5)  // level with our tip: getdata only
	connC := bindActivePeer(t, s, 2, 5)  // no missing hash left: nothing at all

	s.exchangeData()

	// getheaders is a send-only command with no entry in wire's decode
	// table (this node never receives one), so it is parsed here by reading
	// the raw header/body and decoding the payload directly instead of
	// going through wire.Decode.
	command, body := readRawWireMessage(t, connA)
	require.Equal(t, "getheaders", command)
	locator := &payload.GetHeadersPayload{}
	locator.DecodeBinary(wireio.NewBinReaderFromBuf(body))
	require.Equal(t, []payload.Hash{tip}, locator.Locator)

	gotA := readWireMessage(t, connA)
	gotB := readWireMessage(t, connB)
	require.Equal(t, "getdata", gotA.Command)
	require.Equal(t, "getdata", gotB.Command)

	hashFromGetData := func(m *wire.Message) payload.Hash {
		items := m.Payload.(*payload.GetDataPayload).Items
		require.Len(t, items, 1)
		return items[0].Hash
	}
	seen := map[payload.Hash]bool{hashFromGetData(gotA): true, hashFromGetData(gotB): true}
	require.Len(t, seen, 2, "both idle peers must have requested distinct hashes")
	require.True(t, seen[hashA] && seen[hashB])

	require.Equal(t, hashA, s.pool.slots[0].Requesting)
	require.NotEqual(t, s.pool.slots[0].Requesting, s.pool.slots[1].Requesting)
	require.True(t, s.pool.slots[2].Requesting.IsZero(), "third peer had no missing hash left to request")

	assertNothingArrives(t, connC)
}

// TestPingActivePeersRecordsOverdueSampleAndRepings ensures a peer whose
// previous ping never got a pong still gets pinged again, and that the
// missed round trip is folded into its latency average rather than
// silently dropped.
func TestPingActivePeersRecordsOverdueSampleAndRepings(t *testing.T) {
	cfg := testConfig()
	cfg.MaxOutgoing = 1
	cfg.MaxOutgoingIBD = 1
	clock := newFakeClock(time.Unix(1000, 0))
	c := &fakeChain{}
	s := NewServer(cfg, zap.NewNop(), clock, c, nil)

	conn := bindActivePeer(t, s, 0, 0)
	peer := s.pool.slots[0]
	peer.Ping.Pending = true
	peer.Ping.Nonce = 111
	peer.Ping.SentAt = clock.Now()

	clock.Advance(5 * time.Second)
	s.pingActivePeers()

	require.Equal(t, 5*time.Second, peer.AverageLatency())
	require.NotEqual(t, uint64(111), peer.Ping.Nonce, "the overdue ping's nonce must not be reused")

	msg := readWireMessage(t, conn)
	require.Equal(t, "ping", msg.Command)
	require.Equal(t, peer.Ping.Nonce, msg.Payload.(*payload.PingPayload).Nonce)

	// The write only becomes pending once its writeDoneEvent is processed,
	// same as the central event loop would do; drive that here since this
	// test doesn't run Run().
	s.handleEvent(<-s.events)
	require.True(t, peer.Ping.Pending, "the fresh ping is itself now pending")
}

// assertNothingArrives confirms no message is waiting on conn within a
// short deadline.
func assertNothingArrives(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	require.Error(t, err, "expected a read timeout, but data arrived")
}

package network

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolFreeSlotRespectsTarget(t *testing.T) {
	p := newPool(4)
	require.Equal(t, 0, p.FreeSlot(2))
	p.slots[0].State = StateActive
	require.Equal(t, 1, p.FreeSlot(2))
	p.slots[1].State = StateActive
	require.Equal(t, -1, p.FreeSlot(2), "slots beyond target must not be offered even if idle")
}

func TestPoolBindUnbindRoundTrip(t *testing.T) {
	p := newPool(2)
	p.Bind(0, "1.2.3.4:8333")
	require.True(t, p.bound["1.2.3.4:8333"])
	require.Equal(t, "1.2.3.4:8333", p.slots[0].CandidateKey)

	p.Unbind(0)
	require.False(t, p.bound["1.2.3.4:8333"])
	require.Equal(t, StateIdle, p.slots[0].State)
}

func TestPoolTargetSizeShrinksUnderIBD(t *testing.T) {
	p := newPool(8)
	require.Equal(t, 8, p.TargetSize(8, 3))
	p.SetIBDMode(true)
	require.Equal(t, 3, p.TargetSize(8, 3))
}

func TestPoolBindDoesNotRejectAnAlreadyBoundCandidate(t *testing.T) {
	p := newPool(4)
	p.Bind(0, "1.2.3.4:8333")
	// Bind itself does not check the bound set: binding the same candidate
	// key to a second slot succeeds and both slots hold it. Uniqueness across
	// slots comes from selection, since PickBestNonPeer skips every bound key.
	p.Bind(1, "1.2.3.4:8333")
	require.Equal(t, "1.2.3.4:8333", p.slots[0].CandidateKey)
	require.Equal(t, "1.2.3.4:8333", p.slots[1].CandidateKey)
	require.True(t, p.bound["1.2.3.4:8333"])
}

func TestPoolActivePeersOnlyReturnsActiveState(t *testing.T) {
	p := newPool(3)
	p.slots[0].State = StateActive
	p.slots[1].State = StateHandshakeHalf
	p.slots[2].State = StateActive
	active := p.ActivePeers()
	require.Len(t, active, 2)
}

package network

import "errors"

var (
	// ErrFrameOverflow is returned when a TCP segment would push a peer's
	// stream buffer past its capacity even before any message length is
	// known; the connection is not salvageable and must be replaced.
	ErrFrameOverflow = errors.New("network: stream buffer overflow")

	// ErrOversizeFrame is returned when a parsed header declares a payload
	// length that would make the frame exceed the stream buffer's capacity.
	ErrOversizeFrame = errors.New("network: frame exceeds buffer capacity")

	// ErrNoSlotAvailable describes a pool with no free slot to bind a newly
	// picked candidate to. Nothing in this package returns it: fillSlots
	// simply stops when FreeSlot reports -1.
	ErrNoSlotAvailable = errors.New("network: no free peer slot")

	// ErrAlreadyBound describes a candidate that already occupies a slot
	// and is picked again before being released. Nothing in this package
	// returns it: pool.Bind does not check the bound set.
	ErrAlreadyBound = errors.New("network: candidate already bound to a slot")
)

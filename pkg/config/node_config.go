package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tolerances groups the timeout windows the peer pool enforces.
type Tolerances struct {
	Handshake time.Duration `yaml:"Handshake"`
	Latency   time.Duration `yaml:"Latency"`
	PeerLife  time.Duration `yaml:"PeerLife"`
}

// Periods groups the intervals of every scheduled task. A zero period
// disables that task entirely.
type Periods struct {
	DataExchange     time.Duration `yaml:"DataExchange"`
	PersistIndices   time.Duration `yaml:"PersistIndices"`
	Autoexit         time.Duration `yaml:"Autoexit"`
	RecomputeIBD     time.Duration `yaml:"RecomputeIBD"`
	CheckLiveness    time.Duration `yaml:"CheckLiveness"`
	Ping             time.Duration `yaml:"Ping"`
	PrintNodeStatus  time.Duration `yaml:"PrintNodeStatus"`
}

// NodeConfig is the full set of tunables the network layer needs. It is
// loaded once at startup by the launcher and handed down to the server;
// nothing in pkg/network reads the filesystem or environment itself.
type NodeConfig struct {
	Magic           uint32 `yaml:"Magic"`
	ProtocolVersion uint32 `yaml:"ProtocolVersion"`
	Services        uint64 `yaml:"Services"`
	UserAgent       string `yaml:"UserAgent"`

	MaxOutgoing     int `yaml:"MaxOutgoing"`
	MaxOutgoingIBD  int `yaml:"MaxOutgoingIBD"`

	AdminPort    int `yaml:"AdminPort"`
	AdminBacklog int `yaml:"AdminBacklog"`

	StreamBufferCapacity int `yaml:"StreamBufferCapacity"`

	GetAddrThreshold             int     `yaml:"GetAddrThreshold"`
	IBDModeAvailabilityThreshold int     `yaml:"IBDModeAvailabilityThreshold"`
	IBDPeerMaxBlockDifference    uint32  `yaml:"IBDPeerMaxBlockDifference"`

	Tolerances Tolerances `yaml:"Tolerances"`
	Periods    Periods    `yaml:"Periods"`

	AddrLife time.Duration `yaml:"AddrLife"`

	// SilentIncomingMessageCommands lists commands that are handled
	// normally but not logged on receipt (a received command is silent if
	// it is a substring of any entry), to keep routine chatter (ping/pong,
	// inv) out of the log stream.
	SilentIncomingMessageCommands []string `yaml:"SilentIncomingMessageCommands"`

	SeedAddresses []string `yaml:"SeedAddresses"`
}

// Default returns the configuration this node ships with when no file is
// supplied, tuned to the same orders of magnitude as the original node.
func Default() *NodeConfig {
	return &NodeConfig{
		Magic:           0xd9b4bef9,
		ProtocolVersion: 70015,
		Services:        1,
		UserAgent:       "/ctbc:0.1/",

		MaxOutgoing:    8,
		MaxOutgoingIBD: 4,

		AdminPort:    8423,
		AdminBacklog: 4,

		StreamBufferCapacity: 4 * 1024 * 1024,

		GetAddrThreshold:             3,
		IBDModeAvailabilityThreshold: 2,
		IBDPeerMaxBlockDifference:    6,

		Tolerances: Tolerances{
			Handshake: 10 * time.Second,
			Latency:   200 * time.Millisecond,
			PeerLife:  24 * time.Hour,
		},
		Periods: Periods{
			DataExchange:    time.Second,
			PersistIndices:  120 * time.Second,
			Autoexit:        30 * time.Minute,
			RecomputeIBD:    60 * time.Second,
			CheckLiveness:   10 * time.Second,
			Ping:            11 * time.Second,
			PrintNodeStatus: 2 * time.Second,
		},
		AddrLife: 3 * time.Hour,
		SilentIncomingMessageCommands: []string{"ping", "pong", "inv"},
	}
}

// Load reads and parses a YAML configuration file, starting from Default
// and overlaying whatever the file specifies.
func Load(path string) (*NodeConfig, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

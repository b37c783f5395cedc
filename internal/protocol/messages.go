package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	ResumeToken     string `json:"resume_token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	ResumeToken     string         `json:"resume_token"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Devices         []DeviceState  `json:"devices,omitempty"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	ChunkSize  [2]int `json:"chunk_size"`
	BottomY    int    `json:"bottom_y"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
}

type CatalogDigests struct {
	BlockPalette string `json:"block_palette"`
	BlockDefs    string `json:"block_defs"`
	ItemDefs     string `json:"item_defs"`
}

type ItemStack struct {
	ID           string         `json:"id"`
	Count        int            `json:"count"`
	Enchantments map[string]int `json:"enchantments,omitempty"`
}

// CMD (client -> server). Kind-specific fields are optional; the world
// rejects a command that lacks the ones its kind needs.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Pos             [3]int `json:"pos"`

	Area    int  `json:"area,omitempty"`
	Speed   int  `json:"speed,omitempty"`
	Powered bool `json:"powered,omitempty"`

	Side  string     `json:"side,omitempty"`
	Slot  *int       `json:"slot,omitempty"`
	Count int        `json:"count,omitempty"`
	Item  *ItemStack `json:"item,omitempty"`

	Index int `json:"index,omitempty"`
	Value int `json:"value,omitempty"`
}

// ACK (server -> client)
type AckMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ID              string     `json:"id"`
	Accepted        bool       `json:"accepted"`
	Code            string     `json:"code,omitempty"`
	Message         string     `json:"message,omitempty"`
	ServerTick      uint64     `json:"server_tick"`
	Item            *ItemStack `json:"item,omitempty"`
}

// SUBSCRIBE (client -> server). An empty position list subscribes to every device.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Positions       [][3]int `json:"positions,omitempty"`
}

// STATE (server -> client), once per tick while subscribed.
type StateMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	Digest          string        `json:"digest"`
	Devices         []DeviceState `json:"devices"`
}

type SlotState struct {
	Slot int       `json:"slot"`
	Item ItemStack `json:"item"`
}

type DeviceState struct {
	Pos           [3]int      `json:"pos"`
	Status        string      `json:"status"`
	Properties    [6]int      `json:"properties"`
	FilterMode    string      `json:"filter_mode"`
	Depth         int         `json:"depth"`
	RingIndex     int         `json:"ring_index"`
	RingSize      int         `json:"ring_size"`
	AreaUpgrades  int         `json:"area_upgrades"`
	SpeedUpgrades int         `json:"speed_upgrades"`
	Reserved      bool        `json:"reserved"`
	Powered       bool        `json:"powered"`
	FuelGauge     int         `json:"fuel_gauge"`
	ProgressGauge int         `json:"progress_gauge"`
	Slots         []SlotState `json:"slots,omitempty"`
}

// ERROR (server -> client) for messages that could not be routed at all.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

const TypeError = "ERROR"

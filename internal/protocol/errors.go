package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy = "E_WORLD_BUSY"

	// Command layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrConflict      = "E_CONFLICT"
	ErrBlocked       = "E_BLOCKED"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrBadRequest:      {},
	ErrNoResource:      {},
	ErrInvalidTarget:   {},
	ErrConflict:        {},
	ErrBlocked:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

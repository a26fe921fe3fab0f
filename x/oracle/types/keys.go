package types

import "encoding/binary"

const (
	// ModuleName defines the module name
	ModuleName = "oracle"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// RouterKey defines the module's message routing key
	RouterKey = ModuleName
)

// Store key prefixes
var (
	FeedKeyPrefix        = []byte{0x01}
	RoundKeyPrefix       = []byte{0x02}
	LatestRoundKeyPrefix = []byte{0x03}
	ReporterKeyPrefix    = []byte{0x04}
)

// FeedKey returns the store key of a feed
func FeedKey(feedID string) []byte {
	return append(append([]byte{}, FeedKeyPrefix...), []byte(feedID)...)
}

// RoundKey returns the store key of one round of a feed. Rounds of the same
// feed sort by round id.
func RoundKey(feedID string, roundID uint64) []byte {
	key := append(append([]byte{}, RoundKeyPrefix...), []byte(feedID+"/")...)
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, roundID)
	return append(key, bz...)
}

// LatestRoundKey returns the store key holding the latest round id of a feed
func LatestRoundKey(feedID string) []byte {
	return append(append([]byte{}, LatestRoundKeyPrefix...), []byte(feedID)...)
}

// ReporterKey returns the store key marking an address as a reporter
func ReporterKey(addr string) []byte {
	return append(append([]byte{}, ReporterKeyPrefix...), []byte(addr)...)
}

package types

import "encoding/binary"

const (
	// ModuleName defines the module name
	ModuleName = "stablecoin"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// TStoreKey defines the transient store key
	TStoreKey = "transient_" + ModuleName

	// RouterKey defines the module's message routing key
	RouterKey = ModuleName
)

// Pegged token metadata
const (
	DscDenom        = "adsc"
	DscDisplayDenom = "dsc"
	DscName         = "DecentralizedStableCoin"
	DscSymbol       = "DSC"
	DscDecimals     = 18
)

// Store key prefixes
var (
	CollateralTokenKeyPrefix   = []byte{0x01}
	CollateralDepositKeyPrefix = []byte{0x02}
	DscMintedKeyPrefix         = []byte{0x03}
	PriceFeedKeyPrefix         = []byte{0x04}
	ParamsKey                  = []byte{0x05}
	CollateralTokenCountKey    = []byte{0x06}
)

// Transient store keys
var (
	ReentrancyGuardKey = []byte{0x01}
)

// CollateralTokenKey returns the registry key of the index-th collateral token
func CollateralTokenKey(index uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, index)
	return append(append([]byte{}, CollateralTokenKeyPrefix...), bz...)
}

// PriceFeedKey returns the key of the feed mapped to a collateral token
func PriceFeedKey(token string) []byte {
	return append(append([]byte{}, PriceFeedKeyPrefix...), []byte(token)...)
}

// CollateralDepositUserPrefix returns the prefix under which all deposits of
// a user are stored. Bech32 addresses never contain '/'.
func CollateralDepositUserPrefix(user string) []byte {
	return append(append([]byte{}, CollateralDepositKeyPrefix...), []byte(user+"/")...)
}

// CollateralDepositKey returns the key of a (user, token) deposit
func CollateralDepositKey(user, token string) []byte {
	return append(CollateralDepositUserPrefix(user), []byte(token)...)
}

// DscMintedKey returns the key of a user's minted debt
func DscMintedKey(user string) []byte {
	return append(append([]byte{}, DscMintedKeyPrefix...), []byte(user)...)
}

package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrFeedNotFound   = errors.Register(ModuleName, 1, "price feed not found")
	ErrFeedExists     = errors.Register(ModuleName, 2, "price feed already registered")
	ErrNoRoundData    = errors.Register(ModuleName, 3, "price feed has no round data")
	ErrUnauthorized   = errors.Register(ModuleName, 4, "unauthorized oracle reporter")
	ErrInvalidFeed    = errors.Register(ModuleName, 5, "invalid price feed")
	ErrInvalidAnswer  = errors.Register(ModuleName, 6, "invalid round answer")
	ErrInvalidGenesis = errors.Register(ModuleName, 7, "invalid oracle genesis")
)

package tickets

import "errors"

var (
	ErrNotFound     = errors.New("ticket not found")
	ErrInvalidLabel = errors.New("invalid label")
	ErrInvalidSeed  = errors.New("invalid knowledge base seed")
)

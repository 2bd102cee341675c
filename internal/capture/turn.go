package capture

import (
	"context"
	"fmt"
	"sync/atomic"
)

// TurnID identifies one conversational turn: a single user utterance together
// with all the tool invocations triggered while responding to it. Two tool
// calls carry the same TurnID exactly when they originate from the same
// utterance.
type TurnID string

var turnCounter atomic.Uint64

// NextTurn allocates a fresh TurnID. IDs are unique per process run.
func NextTurn() TurnID {
	return TurnID(fmt.Sprintf("turn-%d", turnCounter.Add(1)))
}

type turnKey struct{}

// ContextWithTurn returns a context carrying the given turn identity.
func ContextWithTurn(ctx context.Context, turn TurnID) context.Context {
	return context.WithValue(ctx, turnKey{}, turn)
}

// TurnFromContext extracts the turn identity from ctx. The boolean is false
// when the context carries none.
func TurnFromContext(ctx context.Context) (TurnID, bool) {
	turn, ok := ctx.Value(turnKey{}).(TurnID)
	return turn, ok
}

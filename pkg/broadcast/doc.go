// Package broadcast provides a type-safe publish/subscribe slot for sharing a
// single piece of state with many consumers.
//
// Unlike a plain message bus, a Broadcaster here behaves as a sticky state
// slot: it remembers the latest published value and replays it to every new
// subscriber, so consumers that attach late still observe the current state.
// Delivery is non-blocking; a slow consumer has intermediate values dropped,
// which is acceptable because only the latest state matters.
//
// # Usage
//
//	slot := broadcast.NewMemorySlot[string](8)
//	defer slot.Close()
//
//	sub := slot.Subscribe(ctx)
//	_ = slot.Broadcast(ctx, "hello")
//	v := <-sub.Receive() // "hello"
package broadcast

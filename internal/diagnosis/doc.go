// Package diagnosis implements an in-process diagnosis bus. Producers publish
// typed status updates on named channels through a Handle; monitors receive a
// synchronous callback for every update plus a replay of the latest value when
// they subscribe. Every update is appended to a recording for offline analysis.
//
// Monitor callbacks run on the publisher's goroutine while the channel lock is
// held. They must be fast and must not publish to or subscribe on the same
// channel.
package diagnosis

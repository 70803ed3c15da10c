// Package store holds the latest snapshot of every polled source and fans
// updates out to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [SourceSnapshot]: Storage representation of one source's state
//   - [AgentRecord]: Storage representation of one agent
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers miss updates rather than block the pollers).
//
// The store is managed by the board package; SDK users polling a single
// endpoint never see it.
package store

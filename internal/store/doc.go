// Package store keeps the latest published state of every sensor in memory
// and fans updates out to subscribers.
//
// The main components are:
//
//   - [Store]: interface defining storage and subscription operations
//   - [MemoryStore]: in-memory implementation of Store with pub/sub
//   - [SensorState]: storage representation of one sensor's entity state
//
// Each refresh fully replaces a sensor's previous entry. Subscribers receive
// updates via channels with non-blocking sends; slow subscribers miss updates
// rather than block the refresh path.
package store

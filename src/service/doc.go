// Package service exposes a running scene graph over HTTP: thread and
// channel statistics, node and scene snapshots, a websocket streaming the
// writes to a field, and the prometheus metrics.
package service

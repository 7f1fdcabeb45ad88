// Package websocket pushes dataset events to browser dashboards.
//
// A Hub owns the connected clients and fans out every message published
// through Broadcast. Messages are events.WebSocketMessage envelopes; new
// clients first receive a connect message listing the configured datasets.
// Handler upgrades /ws requests after an origin check.
package websocket

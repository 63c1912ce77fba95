// Package ws implements the WebSocket hub for lapboard.
//
// Hub keeps the set of connected observers and pushes the full board snapshot
// to each of them: once on connect, then after every committed mutation
// (Broadcast). There is no diffing; every message replaces the client's state.
//
// New(src, opts...) creates a Hub.
// Hub.Broadcast(snap) enqueues snap for every client without blocking. A
// client whose send buffer is full is disconnected; it reconnects and gets a
// fresh snapshot.
// Hub.Run(ctx) blocks until ctx is cancelled, then closes all connections.
// Hub.ServeHTTP upgrades a request and serves one client until it leaves.
//
// Message format sent to clients:
//
//	{
//	  "event": "state:update",
//	  "data":  { /* same schema as GET /api/state */ }
//	}
//
// Each client has its own FIFO send buffer, so a client sees snapshots in the
// order the mutations committed. The upgrader accepts all origins.
package ws

// Tracks and controls game-server processes.
//
// The [Registry] maps server names to the process ids the daemon started.
// A [Spawner] launches a server detached from the daemon's session, and a
// [Prober] answers whether a tracked id is still alive and what the kernel
// reports as its run state.
package process

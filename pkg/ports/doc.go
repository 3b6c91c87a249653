/*
Package ports defines the driven ports (interfaces) for the order desk.

These interfaces decouple the conversation runtime from external implementations,
allowing it to work with various storage backends, model providers and log sinks.

# Key Interfaces

  - SessionStore: Persists and loads per-user Sessions.
  - ReplyCache: Maps a serialized history to a previously generated reply.
  - ModelCaller: Produces a reply for a conversation history.
  - AuditLogger: Appends entries to the per-user conversation log.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports

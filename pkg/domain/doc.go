/*
Package domain contains the core models of the order desk.

It defines the entities of the scripted support conversation: the Session with its
Phase, History and TaskFlags, the fixed Order catalog entries, and the records written
to the audit log. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Session: Per-user conversation record (Phase, History, Interactions, TaskFlags).
  - Phase: Closed set of conversation positions driving the state machine.
  - Order: A catalog entry the user can track, modify, cancel or return.
  - TurnResult: What the transport renders after a user message.
*/
package domain

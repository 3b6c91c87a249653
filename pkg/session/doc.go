/*
Package session implements session management and persistence orchestration.

It serializes turns for the same user with per-user locks, optionally backed by a
distributed locker so several replicas can share one store, and gives callers a
load-modify-save transaction that never persists a half-applied turn.
*/
package session

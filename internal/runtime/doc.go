/*
Package runtime implements the conversation state machine.

Each session sits in exactly one phase. A user message is resolved through a
dispatch table keyed by phase, where each entry pairs an input predicate with a
transition. The scripted phases answer with canned replies; the order menu hands
the history to the language model, going through the reply cache, then runs the
task detector and builds the option buttons.

Turns for the same user are serialized by the session manager, and a turn that
fails leaves the stored session untouched.
*/
package runtime

/*
Package session implements the session orchestration core.

A Session owns one conversation's state, its bounded event log and at most
one in-flight execution of the orchestration graph. The Registry owns all
sessions, bounds the number of executions running at once across sessions
with a permit pool, and runs a Sweeper that evicts sessions idle past a TTL.

Cancellation is cooperative: Cancel and Cleanup cancel the execution's
context and block until the execution has terminated.
*/
package session

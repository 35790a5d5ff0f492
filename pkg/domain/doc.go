/*
Package domain contains the core models of the agent service.

It defines the vocabulary shared by the session core, the orchestration
graph and the adapters. The package is kept free of I/O.

# Key Entities

  - ProgressEvent: An immutable, timestamped record of a step transition.
  - Intent: The routing label produced by the planner.
  - SessionInfo: A read-only view of a session used for introspection.
  - LifecycleHooks: Callbacks used by observability adapters.
*/
package domain

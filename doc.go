package txncheck

/*
Txncheck decides whether a recorded multi-session execution of a
transactional key-value store satisfies a consistency level. Polynomial
levels (committed read, atomic read, causal) are decided by graph
saturation; the NP-complete ones (prefix, snapshot isolation,
serializability) by a constrained linearization search over a causally
saturated partial order, after decomposing the history along its
communication graph.

The `txncheck` module is organized into the following packages:

* `history`: recorded executions, their validation, and the atomic
  transaction form the checkers operate on.
* `graph`: directed and undirected graph containers with transitive
  closure, cycle reporting, and biconnected components.
* `consistency`: one checker per level, the witness and error shapes,
  and the communication-graph decomposition.
* `consistency/linearize`: the constrained linearization engine and the
  per-level solvers.
* `config`: TOML configuration for logging and search tuning.
*/

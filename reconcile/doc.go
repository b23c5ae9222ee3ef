// Package reconcile drives declared cloud resources to their desired
// state.
//
// One resource's reconciliation runs match → diff → mutate → await:
//
//  1. Find the existing resource matching the declared identity. Zero
//     matches means create; more than one is fatal ambiguity.
//  2. Diff the declaration against the existing attributes. An empty diff
//     is a true no-op and makes no further remote calls.
//  3. Issue exactly one create or patch call.
//  4. Poll the resulting long-running operation to a terminal state under
//     a bounded timeout.
//
// The engine is transport-agnostic: every resource kind supplies an
// Adapter that performs the remote calls and normalizes provider payload
// shapes. Policies are reconciled separately, either by wholesale
// replacement or by a non-destructive read-merge-write.
//
// Multiple interdependent resources are reconciled with a Plan, which runs
// independent resources concurrently and feeds each resource's result to
// its dependents explicitly.
package reconcile

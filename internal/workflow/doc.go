// Package workflow orchestrates fairness evaluation jobs using Temporal
// workflows. Two processor variants share one engine: automated endpoint
// jobs run collection then evaluation (two-phase progress), manual prompt
// jobs run evaluation only. All control flow uses workflow-safe APIs so
// replay stays deterministic; everything with side effects lives in
// activities.
//
// Fan-out is sequential dispatch with a fixed inter-item delay, fan-in is
// an awaited counter over per-item aggregation calls. Per-item failures are
// data, not workflow errors: only setup failures (ownership, preparation)
// and fan-in timeouts abort a job, and an abort always routes through the
// failure handler so the job record never sticks in an interim phase.
package workflow

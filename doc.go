// Package stepflow provides a lightweight workflow execution engine.
//
// Workflows are directed acyclic graphs of tasks built either in code or
// loaded from declarative YAML definitions, and executed sequentially or
// with bounded parallelism. Recurring executions are driven by a cron based
// scheduler. The engine is composed of pluggable service layers:
//
//   - model     – workflow and task graph, statuses, results
//   - engine    – dispatch, retry, run registry, cancel/pause/resume
//   - scheduler – cron expressions, scheduled jobs, dispatch runner
//   - dao       – persistence abstraction with in-memory defaults
//
// Stepflow is designed to be embedded in host applications. End-users
// typically interact via the high-level Service façade exposed by the root
// package:
//
//	srv := stepflow.New(stepflow.WithHandler("greet", greet))
//	wf, _ := srv.LoadWorkflow(ctx, "workflow.yaml")
//	result, _ := srv.Execute(ctx, wf)
//
// For more details see the README and individual sub-packages.
package stepflow

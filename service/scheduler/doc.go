// Package scheduler owns recurring jobs bound to workflow identifiers. It
// parses 5-field cron syntax, computes each job's next eligible run and
// exposes due jobs for a poll loop; the optional Runner supplies such a loop,
// otherwise polling is the host's responsibility.
package scheduler

// Package cgroupctl applies per-component resource limits and lifecycle
// control to process trees through the Linux cgroup virtual filesystem.
// It supports both the v1 multi-hierarchy and the v2 unified hierarchy,
// selecting the right one at construction time, and exposes a single
// Controller facade for limit updates, membership enrollment and
// freeze/thaw of a component's processes.
package cgroupctl

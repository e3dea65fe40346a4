// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-performance concurrency primitives for the dataflow core, with
// NUMA-aware, lock-free, and cross-platform support. Includes CPU/NUMA
// pinning, executors, and ring buffers used by the scheduler's
// worker-thread pool.
//
// All implementations are cross-platform compatible (Linux/Windows).
package concurrency

// Package workflow implements the Temporal workflow definitions for the
// contribmeter platform.
//
// This package contains the orchestration logic that coordinates
// contributivity measurement runs using the Temporal workflow engine.
// The workflow fans a scenario's partition out to the requested estimator
// activities, assembles their outputs into contributivity records, and
// keeps per-method failures isolated so one aborted estimator never
// discards another's result.
//
// Key responsibilities include:
//
//   - Workflow definition and registration
//   - Activity option and retry policy configuration
//   - Per-method failure isolation and reporting
//   - Record assembly and validation
//
// Workflows in this package follow Temporal best practices: deterministic
// execution, proper error handling, and versioning support. All sampling,
// training, and wall-clock dependent work is delegated to activities.
package workflow

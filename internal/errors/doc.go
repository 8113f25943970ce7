// Package errors provides structured, coded errors for heart.
//
// Two kinds of failure exist in the engine:
//   - fatal invariant violations (wrong-variant fragment access, duplicate
//     sibling keys, exhausted hook slots) which abort the current operation
//     by panicking with a *HeartError whose Fatal flag is set
//   - ordinary errors from the outer layers (configuration, inspector, CLI)
//     which are returned as *HeartError values wrapping their cause
//
// # Error Codes
//
// Each error has a unique code (e.g., "H003") that maps to a short message,
// a detailed explanation and an optional hint:
//
//	H001-H019  engine invariants
//	H060-H079  inspector
//	H120-H159  configuration
//	H200-H219  command line
//
// # Usage
//
//	err := errors.New("H121").WithDetail("engine.maxDrainIterations must be >= 0")
//	fmt.Println(err.Format())
//
// Fatal failures are raised with Fail and recognised with Recovered:
//
//	defer func() {
//	    if he := errors.Recovered(recover()); he != nil && he.Code == "H003" {
//	        // duplicate sibling keys
//	    }
//	}()
package errors

// Package snapshot implements the diagnostic snapshot pipeline: fact
// collection from external tools, allow-list file copying, structure
// reporting, manifest generation, and tar.gz packaging.
//
// Every data-gathering step is best-effort. A missing tool or failed
// command produces an absent or empty fact file and never aborts the run;
// only output-directory creation and final archiving are allowed to fail
// the run as a whole.
package snapshot

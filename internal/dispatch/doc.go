// Package dispatch executes split plans across a bounded worker pool.
// Outcomes come back in the original job order no matter how execution
// interleaves, one job's failure never cancels its siblings, and dry
// runs exercise the same structural validation a real run would.
package dispatch

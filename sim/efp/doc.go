// Package efp provides the experimental frame / processor example: a job
// Generator feeding a single-job Processor, observed by a Transducer that
// stops the generator and reports throughput when its observation window ends.
package efp

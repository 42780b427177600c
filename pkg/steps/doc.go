// Package steps provides the canonical steps of the ask pipeline:
// prepare-query normalizes the incoming query and generate-answer turns it
// into an answer through a Generator. Both steps degrade instead of failing;
// every anticipated problem maps to a fixed fallback output so a run always
// carries an answer.
package steps

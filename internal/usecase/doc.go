// Package usecase holds the catalog of use cases a run can execute.
//
// Use cases are registered once and validated at registration: every step's
// declared needs must name an earlier step, capability ids are unique within
// a use case, and the report capability must be one of the steps. Use cases
// come from the built-in set or from YAML definitions whose step inputs bind
// to seed values and earlier outputs.
package usecase

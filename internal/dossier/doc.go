// Package dossier turns the report capability's envelope into a Dossier.
//
// The envelope output is first decoded into a typed Result variant, one per
// known capability. Synthesize then starts from a copy of the capability's
// base template and applies the rule for that variant, appending
// checkpoints and key findings and, for classification labels, overriding
// the status. Rules render nothing for fields the output does not carry.
// Capabilities without a rule get the template unchanged apart from the
// subject id.
package dossier

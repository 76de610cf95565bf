// Package config provides configuration structures and utilities for dossiersim.
// It defines run settings, the .dossiersim YAML file format, and report
// output preferences.
package config

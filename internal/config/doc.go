// Package config loads the node-level options for the device control core.
//
// Precedence, lowest to highest: compiled defaults, .env file, S3_*
// environment variables, optional YAML file passed on the command line.
// The merged result is validated before any component sees it.
package config

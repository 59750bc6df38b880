// Package config is the role-keyed configuration collaborator for the
// generation pipeline.
//
// A Role (main, fallback, research) maps to a provider id, a model id,
// and generation parameters. Configuration is read from
// .taskmith/config.toml (or .yaml) under a project root; an empty root
// falls back to built-in defaults. Lookups re-read the file on every
// call so role remapping takes effect without restart, and nothing in
// this package holds ambient global state: the project root and the
// credential session are explicit arguments everywhere.
package config

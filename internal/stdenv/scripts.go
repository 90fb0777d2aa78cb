package stdenv

import _ "embed"

// Generic phase executor installed as "$stdenv/setup".
//
//go:embed scripts/setup.sh
var setupScript string

// Builder script of every package step unless overridden.
//
//go:embed scripts/default-builder.sh
var defaultBuilderScript string

// Builder script of the standard environment step itself.
//
//go:embed scripts/stdenv-builder.sh
var stdenvBuilderScript string

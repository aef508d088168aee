package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// DefaultSafetyYAML contains the embedded default shell and content safety policy.
//
//go:embed defaults/safety.yaml
var DefaultSafetyYAML []byte

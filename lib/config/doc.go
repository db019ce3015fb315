// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads console configuration.
//
// Configuration comes from a single file named by the --config flag or
// the BELFAST_CONFIG environment variable. There is no discovery. With
// neither set, [Default] is used as-is, which points at a local
// development server.
//
// Files ending in .json or .jsonc are parsed as JSON with comments
// (github.com/tidwall/jsonc); everything else is YAML.
//
// Environment sections (development, staging, production) override
// base values when [Config].Environment matches. Production is
// stricter: the API base URL must use https unless it targets a
// loopback host.
//
// Path fields expand ${HOME}, ${XDG_CONFIG_HOME} and ${VAR:-default}.
package config

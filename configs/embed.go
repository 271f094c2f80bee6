// Package configs ships the default fleet catalog and a sample runtime configuration.
package configs

import _ "embed"

// Catalog is the default fleet catalog, used when no catalog_path is configured.
//
//go:embed catalog.yml
var Catalog []byte

// Sample is the annotated sample runtime configuration.
//
//go:embed config.yml
var Sample []byte

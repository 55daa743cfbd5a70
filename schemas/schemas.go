// Package schemas embeds the JSON Schemas used to validate inbound data.
package schemas

import _ "embed"

// RawRecordSchemaJSON describes one raw benchmark record as delivered by a
// provider, before normalization.
//
//go:embed raw_record.schema.json
var RawRecordSchemaJSON string

// ConfigSchemaJSON describes the .benchdash.yaml configuration file.
//
//go:embed config.schema.json
var ConfigSchemaJSON string

// Package config loads application configuration and the spreadsheet layout
// definitions the loader is parameterized by.
//
// # Configuration Sources
//
// Values are applied in this order, later sources winning:
//
//	1. Default()
//	2. A YAML file (HILIR_CONFIG, hilirisasi.yaml, config.yaml, configs/config.yaml)
//	3. Environment variables prefixed with HILIR_
//
// For example:
//
//	HILIR_SERVER_PORT=9090
//	HILIR_LOGGING_LEVEL=debug
//	HILIR_WATCHER_DEBOUNCE=500ms
//
// Datasets and layouts are only configurable in the file:
//
//	datasets:
//	  - name: realisasi-2025
//	    path: KBK_Hilirisasi 2025 Full Year.xlsx
//	    layout: legacy
//	layouts:
//	  legacy:
//	    header_skip: 7
//	  input-2026:
//	    layout: v2
//	    sheet_name: Input Data 2026
//
// # Layouts
//
// Two layouts are built in. "legacy" reads the "Realisasi Hilirisasi" sheet
// after six title rows; "v2" reads "Input Data" with the header on the first
// row. A file entry with a built-in name is merged over it; a new name
// extends the built-in named by its "layout" field.
//
// # Testing
//
// Default() returns a configuration that needs no file or environment.
package config

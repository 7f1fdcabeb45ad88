// Package files finds source workbooks in a data directory and checks the
// directories the application writes to.
//
// Discovery guesses a workbook's layout from its sheet names, so an
// unconfigured file can still be loaded:
//
//	d := files.NewDiscovery(cfg, logger)
//	found, err := d.FindSpreadsheets(cfg.Paths.DataDir)
//	layout, err := d.DetectLayout(found[0].Path)
package files

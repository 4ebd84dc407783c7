// Package model defines the core data structures used throughout
// the stimulus application.
//
// # Image and Group
//
// An Image is one stimulus file. A Group is a named bucket of images that
// share a show-rate:
//
//	faces := &model.Group{
//	    Name: "faces",
//	    ID:   1,
//	    Rate: 3,
//	    Images: []*model.Image{
//	        {ID: 10, File: "faces/a.png", Rate: 1},
//	        {ID: 11, File: "faces/b.png", Rate: 2},
//	    },
//	}
//
// Images and groups are read-only inputs. The scheduler keeps its own
// weights, loads and cursors and never writes to these values.
//
// # Configuration
//
// Configuration bundles the groups with the four policy axes (intergroup
// order, intragroup order, intergroup behaviour, rate behaviour), the
// repeat flag and the number of exhibitions to produce.
//
// Policy values can be parsed from the labels used in experiment files:
//
//	b, err := model.ParseIntergroupBehaviour("Select a new group on each show")
//
// # Exhibition
//
// Exhibition is one produced slot of a run. Its Group and Image fields point
// at the configured values, so consumers can map a selection back to its
// file, id and group name.
//
// # ReportConfig
//
// ReportConfig tells the report writer where to put the results of a run
// and in which ReportFormat:
//
//	cfg := &model.ReportConfig{
//	    OutputDir:      "/data/results",
//	    FileNameFormat: "{experiment}_{date}-{time}",
//	    Format:         model.ReportFormatCSV,
//	}
//	path := cfg.ReportPath("faces", seed, time.Now())
package model

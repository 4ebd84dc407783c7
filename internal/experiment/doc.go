// Package experiment reads, writes and checks experiment files.
//
// An experiment file holds the scheduler configuration (policies, groups,
// images, rates, amount of exhibitions) and the presentation settings
// (show time, interval time, interaction key). JSON and YAML are both
// accepted; the file extension picks the format.
//
// # Loading
//
//	exp, err := experiment.Load(afero.NewOsFs(), "/stimuli/faces.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := experiment.Validate(exp); err != nil {
//	    log.Fatal(err) // lists every problem at once
//	}
//
// A minimal YAML file:
//
//	name: faces
//	intergroup_order: Random
//	intragroup_order: Sequential
//	intergroup_behaviour: Select a new group on each show
//	rate_behaviour: Deterministic
//	allow_image_repeat: true
//	amount_of_exhibitions: 12
//	show_time: 1000
//	interval_time: 500
//	groups:
//	  - id: 1
//	    name: happy
//	    rate: 2
//	    images:
//	      - {id: 1, file: happy/a.png}
//	      - {id: 2, file: happy/b.png}
//	  - id: 2
//	    name: sad
//	    images:
//	      - {id: 3, file: sad/a.png}
//
// Missing rates default to 1. Relative image paths resolve against the
// directory of the experiment file.
//
// # Scanning Folders
//
// Folder turns directories of images into groups, the way the editor's
// "add folder" action does:
//
//	folder := experiment.NewFolder(fs)
//	exp, err := folder.Skeleton(ctx, "pilot", "/stimuli")
//	err = experiment.Save(ctx, fs, "/stimuli/pilot.yaml", exp)
package experiment

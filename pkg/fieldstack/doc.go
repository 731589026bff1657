// Package fieldstack combines multiple time-base-corrected captures of the
// same tape into one improved output by aligning the streams field by field
// and taking a per-sample median.
//
// The package can be embedded in other applications:
//
//	cfg := fieldstack.Config{
//		Inputs: []fieldstack.InputConfig{
//			{Path: "capture1", StartField: 1},
//			{Path: "capture2", StartField: 3},
//			{Path: "capture3", StartField: 1},
//		},
//		Output: "stacked",
//	}
//	s, err := fieldstack.New(cfg, fieldstack.WithLogger(logger))
//	if err != nil { ... }
//	err = s.Run(ctx)
//
// Alignment warnings (suspect starting offsets, drift, duplicate fields)
// are delivered through an optional EventHandler; the CLI turns them into
// log output.
package fieldstack

// Package clucov partitions a weighted point cloud into an unknown number of
// Gaussian-shaped clusters.
//
// Starting from an initial grouping, the engine repeatedly reassigns every
// point to the cluster whose weighted normal density is highest (or to the
// background, label 0, when the point is too far from it in Mahalanobis
// terms), searches random hyperplanes for the direction along which each
// cluster looks most bimodal, splits clusters that turn out to be two,
// merges pairs that turn out to be one, and prunes clusters that became too
// small. Both the split and the merge decision use the same statistic: the
// depth of the valley of a two-component mixture between its means
// (see [Separation]).
//
// Basic usage:
//
//	cfg := clucov.DefaultConfig()
//	cfg.MahalanobisCutoff = 16
//	result, err := clucov.Fit(ctx, data, nil, clucov.Radius{R: 3}, cfg)
//	// result.Labels[i] is the cluster ID of point i (0 = background)
//	// result.Clusters[k-1] is cluster k; clusters are sorted by size
//	// result.Overlap is close to the identity for well separated clusters
//
// For finer control, build an [Engine] over any [PointSet]:
//
//	ds, _ := clucov.NewDataset(data, weights)
//	e, _ := clucov.New(ds, cfg, clucov.WithLogger(clucov.NewLogger(nil)))
//	_ = e.Initialize(ctx, clucov.RandomSeeds{K: 8})
//	result, _ := e.Run(ctx)
//
// # Initialization
//
// [RandomSeeds] picks K random points as provisional centers, [Radius] picks
// centers greedily so that no point is farther than R from all of them, and
// [Labeled] keeps the labels already in the point set. Groups smaller than
// Config.MinMembers are dropped before the first iteration.
//
// # Reproducibility
//
// All randomness comes from one source, seeded from Config.Seed or passed
// with [WithRand], and clusters are always visited in identifier order, so a
// run is reproducible for a fixed seed and input regardless of
// Config.Workers.
package clucov

package partitions

import "golang.org/x/sync/errgroup"

// Run calls fn for every partition using at most workers goroutines and
// returns when all calls have finished. fn must only write state owned by
// its partition.
func (pl *PartitionLayout) Run(workers int, fn func(p *Partition)) {
	if workers <= 1 || pl.NumPartitions == 1 {
		for i := range pl.Partitions {
			fn(&pl.Partitions[i])
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range pl.Partitions {
		g.Go(func() error {
			fn(&pl.Partitions[i])
			return nil
		})
	}
	_ = g.Wait()
}

package merge

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/resource"
	"github.com/stratum-mods/stratum/pkg/types"
)

// BaselineFunc resolves the unmodified game data for a path. It returns
// ok=false when no baseline resource exists, which is not an error for
// resources a mod introduces from scratch.
type BaselineFunc func(path string) (data []byte, ok bool, err error)

// Executor composes a whole batch of contributed paths, fanning units out
// across workers. Distinct paths merge independently; all contributions
// for one path are handled by a single unit in priority order.
type Executor struct {
	Baselines BaselineFunc
	Cache     *Cache
	Language  types.Language
	Workers   int
}

// NewExecutor returns an Executor with worker count defaulted to the
// machine's CPU count.
func NewExecutor(baselines BaselineFunc, cache *Cache, lang types.Language) *Executor {
	return &Executor{
		Baselines: baselines,
		Cache:     cache,
		Language:  lang,
		Workers:   runtime.NumCPU(),
	}
}

// unit is one independently mergeable target: a plain path, or an archive
// root carrying the contributions for all of its nested leaves.
type unit struct {
	path   string
	leaves map[string][]Contribution
}

// Run composes every contributed path and returns the merged resources
// sorted by path. Failed paths are collected rather than aborting the
// batch; the returned error is an aggregate and the successful results
// are still valid. Cancellation via ctx stops scheduling new units.
func (e *Executor) Run(ctx context.Context, contribs map[string][]Contribution, progress types.Progress) ([]*MergedResource, error) {
	log := logging.GetLogger("merge.executor")
	if progress == nil {
		progress = types.NopProgress
	}

	units := groupUnits(contribs)
	log.Debug().Int("units", len(units)).Int("workers", e.workers()).Msg("starting merge batch")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*MergedResource
		batch   errors.Batch
	)
	queue := make(chan unit)

	for i := 0; i < e.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range queue {
				res, err := e.composeUnit(u)
				if err != nil {
					batch.Add(err)
				} else if res != nil {
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
				}
				progress(u.path)
			}
		}()
	}

	var cancelled bool
	for _, u := range units {
		select {
		case <-ctx.Done():
			cancelled = true
		case queue <- u:
		}
		if cancelled {
			break
		}
	}
	close(queue)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	if cancelled {
		return results, errors.Wrap(ctx.Err(), errors.ErrCancelled, "merge batch cancelled")
	}
	if err := batch.Err(); err != nil {
		return results, err
	}
	log.Debug().Int("merged", len(results)).Msg("merge batch complete")
	return results, nil
}

func (e *Executor) composeUnit(u unit) (*MergedResource, error) {
	all := flattenContribs(u.leaves)
	key := ContributorKey(u.path, all)

	if e.Cache != nil {
		if res, ok := e.Cache.Get(u.path, key); ok {
			return res, nil
		}
	}

	baseline, ok, err := e.Baselines(u.path)
	if err != nil {
		return nil, attributePath(err, u.path)
	}
	if !ok {
		baseline = nil
	}

	var res *MergedResource
	if isArchiveUnit(u) {
		res, err = ComposeArchive(u.path, baseline, u.leaves, e.Language)
	} else {
		res, err = Compose(u.path, baseline, u.leaves[u.path], e.Language)
	}
	if err != nil {
		return nil, err
	}

	if e.Cache != nil {
		e.Cache.Put(res)
	}
	return res, nil
}

func (e *Executor) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU()
}

// groupUnits buckets contributions by merge target. Virtual paths inside
// archives collapse onto their archive root so the archive is composed
// exactly once. Units are ordered by path for deterministic scheduling.
func groupUnits(contribs map[string][]Contribution) []unit {
	byRoot := make(map[string]map[string][]Contribution)
	for path, cs := range contribs {
		root := path
		if i := strings.Index(path, codec.NestedSeparator); i >= 0 {
			root = path[:i]
		}
		if byRoot[root] == nil {
			byRoot[root] = make(map[string][]Contribution)
		}
		byRoot[root][path] = cs
	}

	units := make([]unit, 0, len(byRoot))
	for root, leaves := range byRoot {
		units = append(units, unit{path: root, leaves: leaves})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].path < units[j].path })
	return units
}

// isArchiveUnit reports whether a unit composes an archive: any nested
// leaf contribution implies one, and a contribution addressing an
// archive-kind path directly is a whole-container payload.
func isArchiveUnit(u unit) bool {
	if len(u.leaves) > 1 {
		return true
	}
	if _, direct := u.leaves[u.path]; !direct {
		return true
	}
	return resource.KindOf(u.path) == resource.ResArchive
}

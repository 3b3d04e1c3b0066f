package maincmd

import (
	"os"

	"golang.org/x/sync/errgroup"
)

type source struct {
	name string
	text string
}

// readFiles loads every path concurrently — kelp source files are read in
// full before compiling, so there's no reason to serialize the disk I/O
// across a multi-file invocation.
func readFiles(paths []string) ([]source, error) {
	sources := make([]source, len(paths))
	var g errgroup.Group
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			b, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			sources[i] = source{name: p, text: string(b)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

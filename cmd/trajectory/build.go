package main

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"trajectory-builder/internal/assignment"
	"trajectory-builder/internal/config"
)

type job struct {
	idx  int
	odID int
	run  func(context.Context) ([]assignment.Assignment, error)
}

type jobResult struct {
	rows []assignment.Assignment
	err  error
}

// buildTable generates every movement and flight with a bounded worker pool
// and concatenates the results in scenario order. Failed jobs are logged and
// counted; the first failure is returned alongside the partial table.
func buildTable(ctx context.Context, gen *assignment.Generator, sc *config.Scenario, workers int, log logrus.FieldLogger, onFailure func()) (*assignment.Table, error) {
	var jobs []job
	for _, mv := range sc.Movements {
		req := mv.Request()
		jobs = append(jobs, job{idx: len(jobs), odID: req.ODID, run: func(ctx context.Context) ([]assignment.Assignment, error) {
			return gen.Generate2D(ctx, req)
		}})
	}
	for _, fl := range sc.Flights {
		req := fl.Request()
		jobs = append(jobs, job{idx: len(jobs), odID: req.ODID, run: func(ctx context.Context) ([]assignment.Assignment, error) {
			return gen.Generate3D(ctx, req)
		}})
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]jobResult, len(jobs))
	queue := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				rows, err := j.run(ctx)
				results[j.idx] = jobResult{rows: rows, err: err}
			}
		}()
	}
feed:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case queue <- j:
		}
	}
	close(queue)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := assignment.NewTable()
	var firstErr error
	for i, r := range results {
		if r.err != nil {
			log.WithError(r.err).WithField("odID", jobs[i].odID).Error("build failed")
			if onFailure != nil {
				onFailure()
			}
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		table.Extend(r.rows)
	}
	return table, firstErr
}

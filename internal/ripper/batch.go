package ripper

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// Job is one file queued for ripping.
type Job struct {
	Path    string
	Display string
}

// ProgressUpdate carries counter deltas from a running batch.
type ProgressUpdate struct {
	TotalDelta        int
	DoneDelta         int
	SuccessDelta      int
	UnrecognizedDelta int
	CorruptDelta      int
	FailedDelta       int
	BytesDelta        int64
}

// Summary totals a batch.
type Summary struct {
	Total        int
	Ripped       int
	Unrecognized int
	Corrupt      int
	Failed       int
	BytesWritten int64
}

// Run rips root, which may be a single file or a directory walked
// recursively. With an output directory, artifacts mirror each source's
// folder relative to root. The job list is collected before any artifact is written so
// fresh output is never fed back in. Results are sorted by source path.
func Run(ctx context.Context, root string, r *Ripper, updates chan<- ProgressUpdate) (Summary, []Result, error) {
	summary := Summary{}
	if ctx == nil {
		ctx = context.Background()
	}

	jobs, err := collectJobs(root, r.outputDir)
	if err != nil {
		return summary, nil, err
	}
	send(ctx, updates, ProgressUpdate{TotalDelta: len(jobs)})
	summary.Total = len(jobs)

	queue := make(chan Job)
	results := make(chan Result)

	workers := runtime.NumCPU()
	if workers > len(jobs) {
		workers = max(len(jobs), 1)
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range queue {
				if ctx.Err() != nil {
					return
				}
				results <- r.rip(job.Path, path.Dir(job.Display))
			}
		}()
	}

	var out []Result
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			u := ProgressUpdate{DoneDelta: 1, BytesDelta: res.Bytes}
			switch res.Code {
			case Success:
				summary.Ripped++
				u.SuccessDelta = 1
			case UnrecognizedFormat:
				summary.Unrecognized++
				u.UnrecognizedDelta = 1
			case Corrupt:
				summary.Corrupt++
				u.CorruptDelta = 1
			default:
				summary.Failed++
				u.FailedDelta = 1
			}
			summary.BytesWritten += res.Bytes
			send(ctx, updates, u)
			out = append(out, res)
		}
	}()

	var producerErr error
	for _, job := range jobs {
		select {
		case queue <- job:
			continue
		case <-ctx.Done():
			producerErr = ctx.Err()
		}
		break
	}
	close(queue)

	wg.Wait()
	close(results)
	<-collectorDone

	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	if producerErr != nil && !errors.Is(producerErr, context.Canceled) {
		return summary, out, producerErr
	}
	return summary, out, nil
}

func send(ctx context.Context, updates chan<- ProgressUpdate, u ProgressUpdate) {
	if updates == nil {
		return
	}
	select {
	case updates <- u:
	case <-ctx.Done():
	}
}

func collectJobs(root, outputDir string) ([]Job, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []Job{{Path: absRoot, Display: filepath.Base(absRoot)}}, nil
	}

	var jobs []Job
	err = fs.WalkDir(os.DirFS(absRoot), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		full := filepath.Join(absRoot, filepath.FromSlash(path))
		if d.IsDir() {
			if path != "." && outputDir != "" && isWithin(full, outputDir) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		jobs = append(jobs, Job{Path: full, Display: path})
		return nil
	})
	return jobs, err
}

func isWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

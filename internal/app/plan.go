package app

import (
	"os"

	"qnup/internal/objectkey"
	"qnup/internal/scan"
	"qnup/internal/worker"
)

// plan holds the tasks of a batch and how they are split across workers.
type plan struct {
	tasks      []worker.Task
	chunks     [][]worker.Task
	totalBytes int64
}

// buildPlan derives an object key for every discovered file. A single file
// runs as one chunk; a directory is partitioned over at most maxWorkers.
func buildPlan(files *scan.Result, objectName string, lowercase bool, maxWorkers int) *plan {
	p := &plan{tasks: make([]worker.Task, 0, len(files.Files))}

	if !files.IsDir {
		path := files.Files[0]
		p.tasks = append(p.tasks, worker.Task{LocalPath: path, RemoteKey: objectkey.Single(path, objectName)})
		p.chunks = [][]worker.Task{p.tasks}
	} else {
		deriver := objectkey.Deriver{Root: files.Root, Prefix: objectName, Lowercase: lowercase}
		for _, path := range files.Files {
			p.tasks = append(p.tasks, worker.Task{LocalPath: path, RemoteKey: deriver.Key(path)})
		}
		p.chunks = worker.Partition(p.tasks, maxWorkers)
	}

	p.totalBytes = countBytes(p.tasks)
	return p
}

// countBytes sums the current size of every task's file for progress
// tracking. Files that cannot be stat'ed count as zero; the worker reports
// their failure.
func countBytes(tasks []worker.Task) int64 {
	var total int64
	for _, task := range tasks {
		if info, err := os.Stat(task.LocalPath); err == nil {
			total += info.Size()
		}
	}
	return total
}

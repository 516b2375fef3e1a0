package main

import (
	"fmt"

	osiris "github.com/osiris-exp/reco_go/pkg"
)

type WorkerData struct {
	Seq   int
	Event osiris.WaveformEvent
}

type WorkerResult struct {
	Seq   int
	Hits  []osiris.Hit
	Stats osiris.AnalysisStats
	Err   error
}

func worker(id int, analyzer *osiris.Analyzer, jobs <-chan WorkerData, results chan<- WorkerResult) {
	for job := range jobs {
		if VerbosityLevel > 2 {
			message := fmt.Sprintf("Worker %d processing event %d", id, job.Event.EventID)
			logger.Info(message, "worker")
		}
		results <- analyzeEvent(analyzer, job)
	}
}

// analyzeEvent turns a panic while analysing one event into an error so the
// event is discarded and the worker keeps going.
func analyzeEvent(analyzer *osiris.Analyzer, job WorkerData) (result WorkerResult) {
	result.Seq = job.Seq
	defer func() {
		if r := recover(); r != nil {
			result.Hits = nil
			result.Err = fmt.Errorf("recovered from panic on event %d: %v", job.Event.EventID, r)
		}
	}()
	result.Hits, result.Stats = analyzer.Analyze(job.Event)
	return result
}

// sendEventsToWorkers feeds every event of the reader to the jobs channel and
// closes it. The returned channel carries the read error, if any.
func sendEventsToWorkers(reader EventSource, skip, max int64, jobs chan<- WorkerData) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(jobs)
		seq := 0
		done <- reader.Read(skip, max, func(event osiris.WaveformEvent) error {
			jobs <- WorkerData{Seq: seq, Event: event}
			seq++
			return nil
		})
	}()
	return done
}

// EventSource is satisfied by rootio.WaveformReader.
type EventSource interface {
	Read(skip, max int64, fn func(osiris.WaveformEvent) error) error
}

// processEvents runs the worker pool and hands hits to sink in input order.
func processEvents(reader EventSource, analyzer *osiris.Analyzer, skip, max int64, numWorkers int,
	sink func(osiris.Hit) error) (osiris.AnalysisStats, error) {
	jobs := make(chan WorkerData, numWorkers)
	results := make(chan WorkerResult, numWorkers)

	finished := make(chan struct{})
	for w := 1; w <= numWorkers; w++ {
		go func(id int) {
			worker(id, analyzer, jobs, results)
			finished <- struct{}{}
		}(w)
	}
	go func() {
		for w := 0; w < numWorkers; w++ {
			<-finished
		}
		close(results)
	}()

	readErr := sendEventsToWorkers(reader, skip, max, jobs)

	var stats osiris.AnalysisStats
	var sinkErr error
	pending := make(map[int]WorkerResult)
	next := 0
	for result := range results {
		pending[result.Seq] = result
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if ready.Err != nil {
				logger.Error(ready.Err.Error())
				continue
			}
			stats.Add(ready.Stats)
			if sinkErr != nil {
				continue
			}
			for _, hit := range ready.Hits {
				if err := sink(hit); err != nil {
					sinkErr = err
					break
				}
			}
		}
	}

	if err := <-readErr; err != nil {
		return stats, fmt.Errorf("error reading waveforms: %w", err)
	}
	return stats, sinkErr
}

package selfquery

import "log/slog"

// progressEmitter wraps a caller-supplied ProgressFunc so that a panicking
// or slow callback never breaks retrieval: progress is a value the engine
// produces, not a control dependency it relies on.
type progressEmitter struct {
	fn        ProgressFunc
	requestID string
}

var stageDescriptions = map[string]string{
	StageStart:               "starting retrieval",
	StageSchemaMetadata:      "loaded schema metadata",
	StageSchemaTTL:           "loaded schema graph",
	StageIterationStart:      "starting iteration",
	StageIterationCandidates: "planned query candidates",
	StageIterationExecuted:   "executed query candidates",
	StageIterationStop:       "stopping iteration loop",
	StageError:               "retrieval error",
	StageComplete:            "retrieval complete",
}

func (e *progressEmitter) emit(stage string, done bool, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	event := ProgressEvent{
		Stage:       stage,
		Description: stageDescriptions[stage],
		Done:        done,
		Payload:     payload,
	}

	if e.fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("[SelfQuery] progress callback panicked", "request_id", e.requestID, "stage", stage, "recover", r)
		}
	}()
	e.fn(event)
}

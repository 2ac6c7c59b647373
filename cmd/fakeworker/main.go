/*
Command fakeworker is a stand-in compute worker implementing the
child-process contract the Worker Supervisor expects: one argument
carrying serialized JSON, one JSON object per line on stdout (a
"progress" event zero or more times, then exactly one "result" event).
It is used in place of a real scientific script for local manual
testing; the supervisor tests use their own shell-script fixtures.

It understands the action tags the HTTP surface's cache-population
endpoints send ("extract_sector", "extract_correlation",
"extract_results") and otherwise treats its argument as a job config,
emitting a couple of synthetic progress steps before completing.
*/
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type progressEvent struct {
	Type     string `json:"type"`
	Progress int    `json:"progress,omitempty"`
	Step     string `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
}

func emit(ev interface{}) {
	data, err := json.Marshal(ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fakeworker: failed to encode event: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// emitResult writes a result line whose payload fields are siblings of
// "type", per the child-process contract — not nested under a "result"
// key.
func emitResult(payload map[string]interface{}) {
	ev := map[string]interface{}{"type": "result"}
	for k, v := range payload {
		ev[k] = v
	}
	emit(ev)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "fakeworker: expected one argument carrying serialized JSON")
		os.Exit(1)
	}

	var req map[string]interface{}
	if err := json.Unmarshal([]byte(os.Args[1]), &req); err != nil {
		fmt.Fprintf(os.Stderr, "fakeworker: invalid JSON argument: %v\n", err)
		os.Exit(1)
	}

	if action, ok := req["action"].(string); ok {
		runExtraction(action, req)
		return
	}
	runJob(req)
}

func runExtraction(action string, req map[string]interface{}) {
	result := map[string]interface{}{"action": action}
	for k, v := range req {
		if k != "action" {
			result[k] = v
		}
	}
	result["generatedAt"] = time.Now().UTC().Format(time.RFC3339)
	emitResult(result)
}

func runJob(req map[string]interface{}) {
	steps := []string{"loading inputs", "running model", "writing artifacts"}
	for i, step := range steps {
		emit(progressEvent{
			Type:     "progress",
			Progress: (i + 1) * 100 / len(steps),
			Step:     step,
			Status:   "running",
		})
		time.Sleep(10 * time.Millisecond)
	}

	emitResult(map[string]interface{}{"echo": req, "completedAt": time.Now().UTC().Format(time.RFC3339)})
}

package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ServeStdio reads newline-delimited JSON requests from in and writes
// responses and pushed events to out, one JSON object per line. It returns
// when in is exhausted.
func ServeStdio(d *Dispatcher, in io.Reader, out io.Writer) error {
	var writeMu sync.Mutex
	write := func(msg map[string]any) {
		data, _ := json.Marshal(msg)
		msgType, _ := msg["type"].(string)
		writeMu.Lock()
		defer writeMu.Unlock()
		log.Response(msgType, string(data))
		fmt.Fprintln(out, string(data))
	}

	d.SetEmitter(write)
	defer d.SetEmitter(nil)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		var req map[string]any
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			log.Error("Invalid JSON request: %s", line)
			write(map[string]any{"type": "error", "message": "Invalid JSON"})
			continue
		}
		action, _ := req["action"].(string)
		log.Request(action, line)
		d.Handle(req, write)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			write(map[string]any{
				"type":    "error",
				"message": "Request too large (max 1MB). Split the document or the prompt.",
			})
		}
		return err
	}
	return nil
}

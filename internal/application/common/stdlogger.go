package common

import "log"

// StdLogger implements ContainerLogger over the standard library's log
// package, the ambient logging style carried through the CLI boundary.
type StdLogger struct{}

func (StdLogger) Log(level, message string, metadata map[string]interface{}) {
	if len(metadata) == 0 {
		log.Printf("[%s] %s", level, message)
		return
	}
	log.Printf("[%s] %s %v", level, message, metadata)
}

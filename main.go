package main

import (
	"log"
	"os"
	"strconv"
	"syscall"
)

// Sends SIGHUP to a running service process to force a feature recompute.
// Usage: go run main.go <pid>
func main() {
	pid := os.Getpid()
	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil {
			log.Fatal("invalid pid:", os.Args[1])
		}
		pid = p
	}

	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
}

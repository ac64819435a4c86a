package main

import (
	"fmt"
	"os"
)

func main() {
	err := Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeOf(err))
	}
}

// exitCodeOf maps an error to the process exit code: 0 success, 1
// parse error, 2 recognition failure with no candidates, 3
// configuration error.
func exitCodeOf(err error) int {
	switch err.(type) {
	case nil:
		return 0
	case compileStageError:
		return 1
	case noCandidatesError:
		return 2
	default:
		return 3
	}
}

package main

import "os"

// exitWithCode reports the JIT/exec path's own exit code (spec.md §6:
// "0 success; non-zero on diagnosed errors"). A successful run returns
// nil so cobra's normal teardown runs; anything else exits immediately
// with the program's own code rather than being folded into bcplc's
// generic failure code of 1.
func exitWithCode(code int) error {
	if code == 0 {
		return nil
	}
	os.Exit(code)
	return nil
}

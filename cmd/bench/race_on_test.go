//go:build race

package main

// raceEnabled is true when the race detector is active. Stress sizes are
// reduced because every push is instrumented.
const raceEnabled = true

//go:build !race

package main

// raceEnabled is false when the race detector is not active.
const raceEnabled = false

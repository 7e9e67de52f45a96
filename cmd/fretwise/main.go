// Command fretwise shows a guitar fretboard in a major key and highlights
// the note being played.
package main

func main() {
	Execute()
}

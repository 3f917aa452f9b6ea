package main

import "github.com/MeKo-Tech/qdocr/cmd/qdocr/cmd"

func main() {
	cmd.Execute()
}

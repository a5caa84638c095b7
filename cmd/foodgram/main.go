package main

import "github.com/pageza/foodgram/backend/internal/cmd"

func main() {
	cmd.Execute()
}

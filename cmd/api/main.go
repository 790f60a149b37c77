package main

import "repurposer/internal/app"

func main() {
	app.Run()
}

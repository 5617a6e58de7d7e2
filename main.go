package main

import "github.com/sempr/judge-sandbox/cmd"

func main() {
	cmd.Execute()
}

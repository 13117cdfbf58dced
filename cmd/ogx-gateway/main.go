package main

import "github.com/protexis/ogx-gateway/cmd/ogx-gateway/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/jrsteele09/go-assistant-gateway/cmd/gateway/cmd"

func main() {
	cmd.Execute()
}

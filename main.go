package main

import "github.com/oasisprotocol/vault/cmd"

func main() {
	cmd.Execute()
}

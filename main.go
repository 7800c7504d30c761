package main

import "vape-market-backend/cmd"

func main() {
	cmd.Run()
}

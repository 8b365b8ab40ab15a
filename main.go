package main

import "payment-schedule/cmd"

func main() {
	cmd.Execute()
}

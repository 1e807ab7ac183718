//go:build !linux

package main

import "os"

func main() {
	println("sc16is752ctl needs a Linux I2C adapter")
	os.Exit(1)
}

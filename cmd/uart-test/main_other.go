//go:build !(rp2040 || rp2350)

package main

func main() {
	println("uart-test runs on the expander board; build with -target=pico")
}

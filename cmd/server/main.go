// Command server runs the restaurant reservation API and its helper tasks.
package main

func main() {
	Execute()
}

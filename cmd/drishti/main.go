// Command drishti runs the webcam wellness monitoring service.
package main

func main() {
	Execute()
}

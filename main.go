package main

func main() {
	if err := execute(newRootCmd()); err != nil {
		exitOnError(err)
	}
}

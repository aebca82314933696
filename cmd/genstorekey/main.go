package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrylevesque/starseeker/internal/crypto"
	"github.com/harrylevesque/starseeker/internal/utils"
)

func main() {
	keyFile := flag.String("out", filepath.Join(utils.GetDataDir(), "master.key"), "Where to write the hex master key")
	flag.Parse()

	if _, err := os.Stat(*keyFile); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Refusing to overwrite.\n", *keyFile)
		os.Exit(1)
	}
	if err := utils.EnsureDir(filepath.Dir(*keyFile)); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", filepath.Dir(*keyFile), err)
		os.Exit(1)
	}
	if err := os.WriteFile(*keyFile, []byte(crypto.GenerateMasterKey()+"\n"), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *keyFile, err)
		os.Exit(1)
	}
	fmt.Printf("Master key written to %s\n", *keyFile)
	fmt.Println("Run starseeker with -encrypt to use it for the local store.")
}

package main

import (
	"flag"
	"fmt"
	"os"

	"confidential_casino/internal/logger"
	"confidential_casino/internal/wallet"
)

// keygen writes a new wallet keypair in the Solana CLI JSON format.
func main() {
	out := flag.String("out", "wallet.json", "keypair file to create")
	force := flag.Bool("force", false, "overwrite an existing file")
	flag.Parse()

	if _, err := os.Stat(*out); err == nil && !*force {
		logger.Fatal("keypair file exists, use -force to overwrite", "path", *out)
	}

	kp, err := wallet.GenerateKeypair()
	if err != nil {
		logger.Fatal("generate keypair", "error", err)
	}
	if err := kp.Save(*out); err != nil {
		logger.Fatal("save keypair", "path", *out, "error", err)
	}
	fmt.Println(kp.PublicKey().String())
}

package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "master":
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			log.Fatalf("generating master key: %v", err)
		}
		fmt.Println("Generated vault master key (keep secret):")
		fmt.Printf("  EDUAI_VAULT__MASTER_KEY=%s\n", hex.EncodeToString(key))

	case "token":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		token := os.Args[2]
		hash := sha256.Sum256([]byte(token))
		tokenHash := hex.EncodeToString(hash[:])

		fmt.Printf("Token: %s\n", token)
		fmt.Printf("SHA-256 Hash: %s\n", tokenHash)
		fmt.Println("\nAdd this to your config.yaml:")
		fmt.Printf("  callers:\n")
		fmt.Printf("    - token_hash: \"%s\"\n", tokenHash)
		fmt.Printf("      tenant_id: \"<school id>\"\n")
		fmt.Printf("      description: \"Generated token\"\n")

	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  keygen master          Generate a new 32-byte vault master key")
	fmt.Println("  keygen token <token>   Hash a caller token for use in config.yaml")
}
